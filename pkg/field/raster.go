package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/df07/go-radiance/pkg/core"
)

// gridMagic tags serialized grids; bump the trailing digit on layout changes.
const gridMagic = "RFG1"

// ErrGridFormat is returned when a grid file does not carry the expected
// header.
var ErrGridFormat = errors.New("field: unrecognized grid file format")

// Grid is a dense rasterization of a radiance field over the [-1,1] cube:
// Res³ cells in x-fastest order, each holding a color vector and a density.
type Grid struct {
	Res      int
	Channels int
	Color    []float32 // Res³×Channels
	Density  []float32 // Res³
}

// Cell returns the flat index of cell (x, y, z).
func (g *Grid) Cell(x, y, z int) int {
	return (z*g.Res+y)*g.Res + x
}

// Rasterize samples the field at the cell centers of a res³ grid. Fields
// with view conditioning are sampled unconditioned.
func Rasterize(field core.RadianceField, res int) (*Grid, error) {
	if res <= 0 {
		res = DefaultGridRes
	}
	cells := res * res * res
	g := &Grid{
		Res:      res,
		Channels: field.ColorDims(),
		Color:    make([]float32, 0, cells*field.ColorDims()),
		Density:  make([]float32, 0, cells),
	}

	inv := 2 / float32(res)
	points := make([]float32, 0, min(cells, probeChunk)*3)
	flush := func() error {
		n := len(points) / 3
		var cond []float32
		if d := field.CondDims(); d > 0 {
			cond = make([]float32, n*d)
		}
		color, density, err := field.Radiance(points, cond)
		if err != nil {
			return err
		}
		g.Color = append(g.Color, color...)
		g.Density = append(g.Density, density...)
		points = points[:0]
		return nil
	}

	for cell := 0; cell < cells; cell++ {
		cx := cell % res
		cy := (cell / res) % res
		cz := cell / (res * res)
		points = append(points,
			-1+(float32(cx)+0.5)*inv,
			-1+(float32(cy)+0.5)*inv,
			-1+(float32(cz)+0.5)*inv,
		)
		if len(points)/3 == probeChunk || cell == cells-1 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// SaveGrid writes the grid to path as a gzip-compressed binary blob.
func SaveGrid(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(gridMagic)); err != nil {
		return err
	}
	for _, v := range []uint32{uint32(g.Res), uint32(g.Channels)} {
		if err := binary.Write(zw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(zw, binary.LittleEndian, g.Color); err != nil {
		return err
	}
	if err := binary.Write(zw, binary.LittleEndian, g.Density); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	logger.Noticef("saved %d³ grid (%d channels) to %s", g.Res, g.Channels, path)
	return f.Close()
}

// LoadGrid reads a grid written by SaveGrid.
func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	magic := make([]byte, len(gridMagic))
	if _, err := io.ReadFull(zr, magic); err != nil {
		return nil, err
	}
	if string(magic) != gridMagic {
		return nil, fmt.Errorf("%w: %q", ErrGridFormat, magic)
	}

	var res, channels uint32
	if err := binary.Read(zr, binary.LittleEndian, &res); err != nil {
		return nil, err
	}
	if err := binary.Read(zr, binary.LittleEndian, &channels); err != nil {
		return nil, err
	}

	cells := int(res) * int(res) * int(res)
	g := &Grid{
		Res:      int(res),
		Channels: int(channels),
		Color:    make([]float32, cells*int(channels)),
		Density:  make([]float32, cells),
	}
	if err := binary.Read(zr, binary.LittleEndian, g.Color); err != nil {
		return nil, err
	}
	if err := binary.Read(zr, binary.LittleEndian, g.Density); err != nil {
		return nil, err
	}
	return g, nil
}
