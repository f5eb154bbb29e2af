package core

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// RayBundle is a batch of rays sharing a leading batch shape. Per-ray fields
// are stored flat in row-major batch order; component c of ray r in an
// n-component field lives at index r*n+c. Directions are not required to be
// unit length; DNorm caches their norms so parametric distances can be
// converted to physical ones.
type RayBundle struct {
	Shape Shape     // leading batch dimensions
	O     []float32 // ray origins, R×3
	D     []float32 // ray directions, R×3
	DNorm []float32 // cached direction norms, R
	TNear []float32 // start of the valid parametric range, R
	TFar  []float32 // end of the valid parametric range, R
	ID    []uint64  // stable per-ray identities feeding the sampling RNG streams, R
}

// NewRayBundle allocates a zeroed bundle for the given batch shape.
// Identities default to each ray's linear index within the batch.
func NewRayBundle(shape Shape) *RayBundle {
	r := shape.Count()
	rb := &RayBundle{
		Shape: shape.Clone(),
		O:     make([]float32, r*3),
		D:     make([]float32, r*3),
		DNorm: make([]float32, r),
		TNear: make([]float32, r),
		TFar:  make([]float32, r),
		ID:    make([]uint64, r),
	}
	for i := range rb.ID {
		rb.ID[i] = uint64(i)
	}
	return rb
}

// Rays returns the number of rays in the bundle.
func (rb *RayBundle) Rays() int {
	return len(rb.DNorm)
}

// Origin returns ray r's origin as a vector.
func (rb *RayBundle) Origin(r int) mgl32.Vec3 {
	return mgl32.Vec3{rb.O[r*3], rb.O[r*3+1], rb.O[r*3+2]}
}

// Dir returns ray r's direction as a vector.
func (rb *RayBundle) Dir(r int) mgl32.Vec3 {
	return mgl32.Vec3{rb.D[r*3], rb.D[r*3+1], rb.D[r*3+2]}
}

// SetRay fills in one ray of the bundle and caches its direction norm.
func (rb *RayBundle) SetRay(r int, origin, dir mgl32.Vec3) {
	rb.O[r*3], rb.O[r*3+1], rb.O[r*3+2] = origin[0], origin[1], origin[2]
	rb.D[r*3], rb.D[r*3+1], rb.D[r*3+2] = dir[0], dir[1], dir[2]
	rb.DNorm[r] = dir.Len()
}

// UpdateDNorm recomputes the cached direction norms from D. Callers that
// write D directly must refresh the cache before integrating.
func (rb *RayBundle) UpdateDNorm() {
	for r := 0; r < rb.Rays(); r++ {
		x, y, z := rb.D[r*3], rb.D[r*3+1], rb.D[r*3+2]
		rb.DNorm[r] = math32.Sqrt(x*x + y*y + z*z)
	}
}

// PointsAt evaluates world positions o + t·d for every step value of ts,
// returning a flat (T×R×3) buffer in step-major order.
func (rb *RayBundle) PointsAt(ts *StepSet) ([]float32, error) {
	if err := CheckSame("steps vs rays", ts.Shape, rb.Shape); err != nil {
		return nil, err
	}
	rc := rb.Rays()
	out := make([]float32, ts.Steps*rc*3)
	for t := 0; t < ts.Steps; t++ {
		row := ts.V[t*rc : (t+1)*rc]
		for r := 0; r < rc; r++ {
			tv := row[r]
			o := rb.O[r*3 : r*3+3]
			d := rb.D[r*3 : r*3+3]
			p := out[(t*rc+r)*3 : (t*rc+r)*3+3]
			p[0] = o[0] + d[0]*tv
			p[1] = o[1] + d[1]*tv
			p[2] = o[2] + d[2]*tv
		}
	}
	return out, nil
}

// ActiveMask flags rays whose parametric interval is non-empty, returning
// the mask and the number of active rays.
func (rb *RayBundle) ActiveMask() ([]bool, int) {
	mask := make([]bool, rb.Rays())
	n := 0
	for r := range mask {
		if rb.TNear[r] < rb.TFar[r] {
			mask[r] = true
			n++
		}
	}
	return mask, n
}

// Filter compacts the bundle down to the rays with mask[r] true. The result
// carries a flat (K) batch shape; ranges and identities are preserved so
// downstream sampling stays deterministic.
func (rb *RayBundle) Filter(mask []bool) (*RayBundle, error) {
	if len(mask) != rb.Rays() {
		return nil, fmt.Errorf("%w: mask length %d for %d rays", ErrShapeMismatch, len(mask), rb.Rays())
	}
	k := 0
	for _, m := range mask {
		if m {
			k++
		}
	}
	out := NewRayBundle(Shape{k})
	i := 0
	for r, m := range mask {
		if !m {
			continue
		}
		copy(out.O[i*3:i*3+3], rb.O[r*3:r*3+3])
		copy(out.D[i*3:i*3+3], rb.D[r*3:r*3+3])
		out.DNorm[i] = rb.DNorm[r]
		out.TNear[i] = rb.TNear[r]
		out.TFar[i] = rb.TFar[r]
		out.ID[i] = rb.ID[r]
		i++
	}
	return out, nil
}
