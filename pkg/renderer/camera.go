package renderer

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-radiance/pkg/core"
)

// MultiViewCamera is a pinhole camera with one set of intrinsics shared by
// any number of posed views. Poses follow the x-right, y-down, z-forward
// convention: R's columns are the world directions of the camera axes and T
// is the camera position. Rays are generated unnormalized, with a parametric
// depth of one per unit along the optical axis.
type MultiViewCamera struct {
	Fx, Fy float32 // focal lengths in pixels
	Cx, Cy float32 // principal point in pixels
	Width  int     // image width in pixels
	Height int     // image height in pixels
	TNear  float32 // parametric start of the valid ray range
	TFar   float32 // parametric end of the valid ray range

	R []mgl32.Mat3 // per-view camera-to-world rotations
	T []mgl32.Vec3 // per-view camera positions
}

// NewMultiViewCamera creates a camera without views; add poses with AddView,
// AddLookAt or AddOrbit.
func NewMultiViewCamera(fx, fy, cx, cy float32, width, height int, tnear, tfar float32) *MultiViewCamera {
	return &MultiViewCamera{
		Fx: fx, Fy: fy,
		Cx: cx, Cy: cy,
		Width:  width,
		Height: height,
		TNear:  tnear,
		TFar:   tfar,
	}
}

// Views returns the number of posed views.
func (c *MultiViewCamera) Views() int {
	return len(c.R)
}

// AddView appends a posed view.
func (c *MultiViewCamera) AddView(r mgl32.Mat3, t mgl32.Vec3) {
	c.R = append(c.R, r)
	c.T = append(c.T, t)
}

// AddLookAt appends a view at eye facing at, rolled so that up points
// toward the top of the image. up must not be parallel to the viewing
// direction.
func (c *MultiViewCamera) AddLookAt(eye, at, up mgl32.Vec3) {
	f := at.Sub(eye).Normalize()
	d := f.Mul(f.Dot(up)).Sub(up).Normalize() // image rows grow opposite up
	r := d.Cross(f)
	c.AddView(mgl32.Mat3FromCols(r, d, f), eye)
}

// AddOrbit appends n views looking at center from evenly spaced positions on
// a horizontal circle of the given radius, raised by elevation. The world up
// axis is +y.
func (c *MultiViewCamera) AddOrbit(center mgl32.Vec3, radius, elevation float32, n int) {
	up := mgl32.Vec3{0, 1, 0}
	for k := 0; k < n; k++ {
		phi := 2 * math32.Pi * float32(k) / float32(n)
		eye := center.Add(mgl32.Vec3{
			radius * math32.Cos(phi),
			elevation,
			radius * math32.Sin(phi),
		})
		c.AddLookAt(eye, center, up)
	}
}

// MakeRays builds world-space rays through the given pixel coordinates. The
// batch's leading dimension must equal the view count; pixel i belongs to
// view i / (batch size / views). Rays inherit the batch's pixel IDs, so the
// sampling streams downstream see stable identities however pixels were
// batched.
func (c *MultiViewCamera) MakeRays(pb *core.PixelBatch) (*core.RayBundle, error) {
	views := c.Views()
	if views == 0 {
		return nil, ErrNoViews
	}
	if len(pb.Shape) == 0 || pb.Shape[0] != views {
		return nil, fmt.Errorf("%w: batch shape %v for %d views", ErrViewMismatch, pb.Shape, views)
	}

	rays := core.NewRayBundle(pb.Shape)
	perView := pb.Count() / views
	for i := 0; i < pb.Count(); i++ {
		view := i / perView
		u, v := pb.At(i)
		dir := c.R[view].Mul3x1(mgl32.Vec3{
			(u - c.Cx) / c.Fx,
			(v - c.Cy) / c.Fy,
			1,
		})
		rays.SetRay(i, c.T[view], dir)
		rays.TNear[i] = c.TNear
		rays.TFar[i] = c.TFar
		rays.ID[i] = pb.ID[i]
	}
	return rays, nil
}

// UVGrid returns every pixel center of every view as a batch shaped
// (views, height, width), walked row-major. IDs are the dense global pixel
// indices matching image-shaped output maps.
func (c *MultiViewCamera) UVGrid() *core.PixelBatch {
	pb := core.NewPixelBatch(core.Shape{c.Views(), c.Height, c.Width})
	i := 0
	for view := 0; view < c.Views(); view++ {
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				pb.Set(i, float32(x), float32(y))
				i++
			}
		}
	}
	return pb
}
