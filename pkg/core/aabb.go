package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// parallelEps is the direction-component magnitude below which a ray is
// treated as parallel to a slab axis instead of dividing by it.
const parallelEps = 1e-8

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3 // minimum corner
	Max mgl32.Vec3 // maximum corner
}

// NewAABB creates a new AABB from min and max corners.
func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Center returns the center point of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal.
func (b AABB) Diagonal() float32 {
	return b.Size().Len()
}

// IsValid reports whether min <= max on all axes.
func (b AABB) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Clip intersects every ray's valid range with the box using the slab
// method: per axis the entry and exit distances shrink [tnear, tfar), and a
// ray whose interval empties out is left inverted so ActiveMask excludes it.
// Direction components below parallelEps contribute no constraint when the
// origin lies inside the slab and invalidate the ray otherwise. The returned
// bundle shares origin/direction storage with rb and carries fresh ranges.
func (b AABB) Clip(rb *RayBundle) *RayBundle {
	out := &RayBundle{
		Shape: rb.Shape.Clone(),
		O:     rb.O,
		D:     rb.D,
		DNorm: rb.DNorm,
		ID:    rb.ID,
		TNear: make([]float32, rb.Rays()),
		TFar:  make([]float32, rb.Rays()),
	}
	for r := 0; r < rb.Rays(); r++ {
		tn, tf := rb.TNear[r], rb.TFar[r]
		for axis := 0; axis < 3 && tn < tf; axis++ {
			o := rb.O[r*3+axis]
			d := rb.D[r*3+axis]
			if math32.Abs(d) < parallelEps {
				if o < b.Min[axis] || o > b.Max[axis] {
					tn, tf = 1, 0 // parallel and outside the slab: never intersects
				}
				continue
			}
			inv := 1 / d
			t1 := (b.Min[axis] - o) * inv
			t2 := (b.Max[axis] - o) * inv
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			tn = math32.Max(tn, t1)
			tf = math32.Min(tf, t2)
		}
		out.TNear[r] = tn
		out.TFar[r] = tf
	}
	return out
}
