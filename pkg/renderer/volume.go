package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-radiance/pkg/core"
)

// Volume binds the pieces of a renderable scene: an axis-aligned box in
// world space, the radiance field defined within it, and an optional
// spatial filter that prunes field queries. The field and filter are
// opaque capabilities; the renderer assumes nothing about how they produce
// their answers.
type Volume struct {
	Box    core.AABB
	Field  core.RadianceField
	Filter core.SpatialFilter // nil disables spatial pruning
}

// NewVolume creates a volume over the given box.
func NewVolume(box core.AABB, field core.RadianceField, filter core.SpatialFilter) *Volume {
	return &Volume{Box: box, Field: field, Filter: filter}
}

// UnitVolume creates a volume over the [0,1] cube.
func UnitVolume(field core.RadianceField, filter core.SpatialFilter) *Volume {
	box := core.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	return NewVolume(box, field, filter)
}

// ToNDC maps flat world points (K×3) into the box's normalized [-1,1]
// coordinates in place. Points outside the box land outside [-1,1]; the
// spatial filter is expected to reject them.
func (v *Volume) ToNDC(points []float32) {
	size := v.Box.Size()
	for axis := 0; axis < 3; axis++ {
		lo := v.Box.Min[axis]
		inv := 2 / size[axis]
		for i := axis; i < len(points); i += 3 {
			points[i] = (points[i]-lo)*inv - 1
		}
	}
}
