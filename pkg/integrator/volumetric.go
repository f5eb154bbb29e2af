package integrator

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/df07/go-radiance/pkg/core"
)

// depthEps keeps the depth expectation finite on rays that accumulated no
// opacity; such rays report zero depth instead of NaN.
const depthEps = 1e-10

// State carries, for every ray of a batch, the color and log-transmittance
// accumulated by the step ranges integrated so far. A fresh state is all
// zeros; IntegratePartial threads it through consecutive chunks of the same
// ray without recomputing earlier steps, and it is discarded once the ray's
// full range has been consumed.
type State struct {
	Shape    core.Shape
	Channels int
	Color    []float32 // accumulated color, R×C
	LogT     []float32 // accumulated log-transmittance, R, always <= 0
}

// NewState creates a zeroed accumulator for a batch of rays with C color
// channels.
func NewState(shape core.Shape, channels int) State {
	r := shape.Count()
	return State{
		Shape:    shape.Clone(),
		Channels: channels,
		Color:    make([]float32, r*channels),
		LogT:     make([]float32, r),
	}
}

// Clone returns an independent copy of the state.
func (st State) Clone() State {
	out := NewState(st.Shape, st.Channels)
	copy(out.Color, st.Color)
	copy(out.LogT, st.LogT)
	return out
}

// Alpha returns the opacity accumulated so far for one ray, 1 - exp(logT).
func (st State) Alpha(ray int) float32 {
	return 1 - math32.Exp(st.LogT[ray])
}

// Integrate converts per-step densities into emission weights using the
// discrete absorption model: step i absorbs with optical depth
// density[i] * (ts[i+1]-ts[i]) * dnorm, contributes its local opacity
// 1-exp(-depth) scaled by the transmittance of everything in front of it,
// and attenuates all steps behind it. ts must carry one more row than
// samples; the extra row closes the last integration interval.
//
// Returned are the per-step weights and the log-transmittance at every step
// boundary, laid out (T+1)xR with row 0 all zeros: boundary values are
// relative to the start of the integrated range. prev seeds the weights
// with log-transmittance accumulated by earlier ranges of the same rays
// (one entry per ray, nil for the start of the ray). Zero-width steps
// contribute zero weight, and an infinite density saturates its step to
// the full remaining transmittance, so neither produces NaN.
func Integrate(samples *core.FieldSamples, ts *core.StepSet, rays *core.RayBundle, prev []float32) (*core.Weights, []float32, error) {
	if ts.Steps != samples.Steps+1 {
		return nil, nil, fmt.Errorf("%w: %d step boundaries for %d samples, expected %d",
			core.ErrShapeMismatch, ts.Steps, samples.Steps, samples.Steps+1)
	}
	if err := core.CheckSame("samples vs steps", samples.Shape, ts.Shape); err != nil {
		return nil, nil, err
	}
	if err := core.CheckSame("samples vs rays", samples.Shape, rays.Shape); err != nil {
		return nil, nil, err
	}
	r := rays.Rays()
	if prev != nil && len(prev) != r {
		return nil, nil, fmt.Errorf("%w: %d previous log-transmittance entries for %d rays",
			core.ErrShapeMismatch, len(prev), r)
	}

	steps := samples.Steps
	w := core.NewWeights(steps, rays.Shape)
	logT := make([]float32, (steps+1)*r)

	for t := 0; t < steps; t++ {
		cur := logT[t*r : (t+1)*r]
		next := logT[(t+1)*r : (t+2)*r]
		for ri := 0; ri < r; ri++ {
			width := ts.V[(t+1)*r+ri] - ts.V[t*r+ri]
			var delta float32
			if width > 0 {
				delta = samples.Density[t*r+ri] * width * rays.DNorm[ri]
			}
			next[ri] = cur[ri] - delta
			p := cur[ri]
			if prev != nil {
				p += prev[ri]
			}
			w.W[t*r+ri] = math32.Exp(p) * (1 - math32.Exp(-delta))
		}
	}
	return w, logT, nil
}

// IntegratePartial integrates one chunk of a ray's step sequence on top of
// the state accumulated by the preceding chunks, returning the advanced
// state and the chunk's weights. The input state is not modified.
// Integrating [0,k) then [k,T) this way matches a single Integrate call
// over [0,T) up to float tolerance, which is what allows very long step
// sequences to be consumed without materializing them at once.
func IntegratePartial(st State, samples *core.FieldSamples, ts *core.StepSet, rays *core.RayBundle) (State, *core.Weights, error) {
	if err := core.CheckSame("state vs rays", st.Shape, rays.Shape); err != nil {
		return State{}, nil, err
	}
	if st.Channels != samples.Channels {
		return State{}, nil, fmt.Errorf("%w: state carries %d color channels, samples %d",
			core.ErrChannelMismatch, st.Channels, samples.Channels)
	}

	w, logT, err := Integrate(samples, ts, rays, st.LogT)
	if err != nil {
		return State{}, nil, err
	}

	r := rays.Rays()
	c := st.Channels
	next := st.Clone()
	for ri := 0; ri < r; ri++ {
		next.LogT[ri] = st.LogT[ri] + logT[samples.Steps*r+ri]
	}
	for t := 0; t < samples.Steps; t++ {
		for ri := 0; ri < r; ri++ {
			wv := w.W[t*r+ri]
			if wv == 0 {
				continue
			}
			col := samples.Color[(t*r+ri)*c : (t*r+ri+1)*c]
			acc := next.Color[ri*c : (ri+1)*c]
			for ch := range acc {
				acc[ch] += wv * col[ch]
			}
		}
	}
	return next, w, nil
}

// ColorMap reduces sample colors and integration weights into one
// composited color per ray.
func ColorMap(samples *core.FieldSamples, w *core.Weights) (*core.Map, error) {
	if w.Steps != samples.Steps {
		return nil, fmt.Errorf("%w: %d weights for %d samples", core.ErrShapeMismatch, w.Steps, samples.Steps)
	}
	if err := core.CheckSame("samples vs weights", samples.Shape, w.Shape); err != nil {
		return nil, err
	}

	r := w.Rays()
	c := samples.Channels
	m := core.NewMap(w.Shape, c)
	for t := 0; t < w.Steps; t++ {
		for ri := 0; ri < r; ri++ {
			wv := w.W[t*r+ri]
			if wv == 0 {
				continue
			}
			col := samples.Color[(t*r+ri)*c : (t*r+ri+1)*c]
			acc := m.Row(ri)
			for ch := range acc {
				acc[ch] += wv * col[ch]
			}
		}
	}
	return m, nil
}

// AlphaMap sums integration weights into the accumulated opacity per ray,
// clamped to [0, 1]. An all-zero density ray yields exactly zero.
func AlphaMap(w *core.Weights) *core.Map {
	r := w.Rays()
	m := core.NewMap(w.Shape, 1)
	for t := 0; t < w.Steps; t++ {
		for ri := 0; ri < r; ri++ {
			m.V[ri] += w.W[t*r+ri]
		}
	}
	for ri := range m.V {
		m.V[ri] = math32.Min(math32.Max(m.V[ri], 0), 1)
	}
	return m
}

// DepthMap computes the expected step position per ray under the
// integration weights, normalized by the accumulated opacity so it stays a
// proper weighted mean. Rays without any opacity report zero depth. ts may
// be the sampled sequence or its padded form; only the first w.Steps rows
// are read.
func DepthMap(ts *core.StepSet, w *core.Weights) (*core.Map, error) {
	if ts.Steps != w.Steps && ts.Steps != w.Steps+1 {
		return nil, fmt.Errorf("%w: %d step rows for %d weights", core.ErrShapeMismatch, ts.Steps, w.Steps)
	}
	if err := core.CheckSame("steps vs weights", ts.Shape, w.Shape); err != nil {
		return nil, err
	}

	r := w.Rays()
	m := core.NewMap(w.Shape, 1)
	alpha := make([]float32, r)
	for t := 0; t < w.Steps; t++ {
		for ri := 0; ri < r; ri++ {
			wv := w.W[t*r+ri]
			m.V[ri] += wv * ts.V[t*r+ri]
			alpha[ri] += wv
		}
	}
	for ri := 0; ri < r; ri++ {
		m.V[ri] /= alpha[ri] + depthEps
	}
	return m, nil
}
