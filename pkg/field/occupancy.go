package field

import (
	"math/rand/v2"

	"github.com/df07/go-radiance/pkg/core"
	"github.com/df07/go-radiance/pkg/log"
)

var logger = log.New("field")

// Occupancy grid defaults.
const (
	DefaultGridRes   = 32
	DefaultThreshold = 0.01
	DefaultDecay     = 0.95
)

// probeChunk bounds the number of points per field query during grid updates.
const probeChunk = 1 << 16

// BoundsFilter accepts every point inside the normalized [-1,1] cube and
// nothing else. It is the spatial filter of volumes without a learned
// occupancy estimate.
type BoundsFilter struct{}

// Test reports per point whether it lies inside the cube.
func (BoundsFilter) Test(points []float32) []bool {
	n := len(points) / 3
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		x, y, z := points[i*3], points[i*3+1], points[i*3+2]
		mask[i] = x >= -1 && x <= 1 && y >= -1 && y <= 1 && z >= -1 && z <= 1
	}
	return mask
}

// OccupancyGrid estimates which cells of the normalized volume hold density
// and rejects field queries everywhere else. Cell estimates follow an
// exponential moving maximum refreshed by Update, which the training loop
// calls between renders; Test never mutates the grid and is safe for
// concurrent use during a render.
type OccupancyGrid struct {
	Res       int     // cells per axis
	Threshold float32 // density above which a cell counts as occupied
	Decay     float32 // per-update decay of the moving maximum
	Seed      uint64  // probe jitter seed

	density []float32 // per-cell density estimate
	mask    []bool    // density estimate above threshold
}

// NewOccupancyGrid creates a res³ grid over the [-1,1] cube with default
// threshold and decay. All cells start occupied, so renders reach the field
// everywhere until updates carve out empty space.
func NewOccupancyGrid(res int, seed uint64) *OccupancyGrid {
	if res <= 0 {
		res = DefaultGridRes
	}
	cells := res * res * res
	g := &OccupancyGrid{
		Res:       res,
		Threshold: DefaultThreshold,
		Decay:     DefaultDecay,
		Seed:      seed,
		density:   make([]float32, cells),
		mask:      make([]bool, cells),
	}
	for i := range g.mask {
		g.mask[i] = true
	}
	return g
}

// cellIndex maps a normalized point to its cell, or -1 outside the cube.
func (g *OccupancyGrid) cellIndex(x, y, z float32) int {
	cx := cellCoord(x, g.Res)
	cy := cellCoord(y, g.Res)
	cz := cellCoord(z, g.Res)
	if cx < 0 || cy < 0 || cz < 0 {
		return -1
	}
	return (cz*g.Res+cy)*g.Res + cx
}

func cellCoord(v float32, res int) int {
	if v < -1 || v > 1 {
		return -1
	}
	c := int((v + 1) * 0.5 * float32(res))
	if c == res {
		c = res - 1
	}
	return c
}

// Test reports per point whether its cell is currently occupied. Points
// outside the cube are rejected.
func (g *OccupancyGrid) Test(points []float32) []bool {
	n := len(points) / 3
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		cell := g.cellIndex(points[i*3], points[i*3+1], points[i*3+2])
		mask[i] = cell >= 0 && g.mask[cell]
	}
	return mask
}

// Occupied returns the number of occupied cells.
func (g *OccupancyGrid) Occupied() int {
	n := 0
	for _, m := range g.mask {
		if m {
			n++
		}
	}
	return n
}

// Update refreshes the grid by probing the field at one jittered point per
// cell and folding the probed density into the moving maximum. Probe
// positions vary with step so repeated updates cover each cell. Must not run
// concurrently with a render of the same volume.
func (g *OccupancyGrid) Update(field core.RadianceField, step int) error {
	rng := rand.New(rand.NewPCG(g.Seed, uint64(step)))
	cells := len(g.density)
	inv := 2 / float32(g.Res)

	points := make([]float32, 0, min(cells, probeChunk)*3)
	lo := 0
	for cell := 0; cell < cells; cell++ {
		cx := cell % g.Res
		cy := (cell / g.Res) % g.Res
		cz := cell / (g.Res * g.Res)
		points = append(points,
			-1+(float32(cx)+rng.Float32())*inv,
			-1+(float32(cy)+rng.Float32())*inv,
			-1+(float32(cz)+rng.Float32())*inv,
		)
		if len(points)/3 == probeChunk || cell == cells-1 {
			if err := g.probe(field, points, lo); err != nil {
				return err
			}
			lo = cell + 1
			points = points[:0]
		}
	}

	occupied := 0
	for i, d := range g.density {
		g.mask[i] = d > g.Threshold
		if g.mask[i] {
			occupied++
		}
	}
	logger.Debugf("occupancy update at step %d: %d/%d cells occupied", step, occupied, cells)
	return nil
}

// probe queries the field for a run of cells starting at cell index lo and
// folds the results into the density estimates.
func (g *OccupancyGrid) probe(field core.RadianceField, points []float32, lo int) error {
	n := len(points) / 3
	var cond []float32
	if d := field.CondDims(); d > 0 {
		cond = make([]float32, n*d) // density is view-independent, probe unconditioned
	}
	_, density, err := field.Radiance(points, cond)
	if err != nil {
		return err
	}
	for i, d := range density {
		old := g.density[lo+i] * g.Decay
		if d > old {
			g.density[lo+i] = d
		} else {
			g.density[lo+i] = old
		}
	}
	return nil
}
