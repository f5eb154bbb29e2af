package field

import "github.com/chewxy/math32"

// Colormap maps a scalar in [0,1] to an RGB color.
type Colormap func(v float32) (r, g, b float32)

// Gray is the identity ramp (v,v,v).
func Gray(v float32) (float32, float32, float32) {
	return v, v, v
}

// Jet is the classic blue-cyan-yellow-red ramp.
func Jet(v float32) (float32, float32, float32) {
	v = clamp01(v)
	r := math32.Min(4*v-1.5, -4*v+4.5)
	g := math32.Min(4*v-0.5, -4*v+3.5)
	b := math32.Min(4*v+0.5, -4*v+2.5)
	return clamp01(r), clamp01(g), clamp01(b)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// GradientField is an analytic radiance field: a planar surface orthogonal
// to one axis, with density growing linearly beyond the plane and color
// given by a colormap over position along the same axis. Both opacity and
// color along any ray have closed forms, which makes it the reference scene
// for renderer tests and demo images.
type GradientField struct {
	SurfaceDim   int     // axis of the plane normal: 0, 1 or 2
	SurfacePos   float32 // plane position along that axis, in [-1,1]
	DensityScale float32 // density slope beyond the plane; +Inf approximates a hard surface
	Cmap         Colormap
}

// NewGradientField creates a gradient field. A nil colormap falls back to
// Gray.
func NewGradientField(dim int, pos, scale float32, cmap Colormap) *GradientField {
	if cmap == nil {
		cmap = Gray
	}
	return &GradientField{
		SurfaceDim:   dim,
		SurfacePos:   pos,
		DensityScale: scale,
		Cmap:         cmap,
	}
}

// ColorDims returns the number of color channels.
func (f *GradientField) ColorDims() int { return 3 }

// CondDims returns zero; the field is view-independent.
func (f *GradientField) CondDims() int { return 0 }

// Radiance evaluates the field at normalized [-1,1] points (N×3 flat).
func (f *GradientField) Radiance(points, cond []float32) ([]float32, []float32, error) {
	n := len(points) / 3
	color := make([]float32, n*3)
	density := make([]float32, n)

	pos := (f.SurfacePos + 1) * 0.5
	for i := 0; i < n; i++ {
		v := (points[i*3+f.SurfaceDim] + 1) * 0.5
		r, g, b := f.Cmap(v)
		color[i*3], color[i*3+1], color[i*3+2] = r, g, b
		if d := v - pos; d > 0 {
			density[i] = d * f.DensityScale
		}
	}
	return color, density, nil
}
