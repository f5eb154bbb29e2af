package core

import "fmt"

// StepSet holds T step parameters for every ray of a batch, laid out
// step-major: the value for (step t, ray r) lives at V[t*R+r]. Within each
// ray the values ascend along the step axis; samplers guarantee this by
// construction and the integrator relies on it.
type StepSet struct {
	Steps int       // number of steps T
	Shape Shape     // leading batch dimensions
	V     []float32 // step values, T×R
}

// NewStepSet allocates a zeroed step set.
func NewStepSet(steps int, shape Shape) *StepSet {
	return &StepSet{
		Steps: steps,
		Shape: shape.Clone(),
		V:     make([]float32, steps*shape.Count()),
	}
}

// Rays returns the number of rays covered by the set.
func (ss *StepSet) Rays() int {
	return ss.Shape.Count()
}

// At returns the value for (step, ray).
func (ss *StepSet) At(step, ray int) float32 {
	return ss.V[step*ss.Rays()+ray]
}

// Row returns the values of all rays at one step, sharing storage.
func (ss *StepSet) Row(step int) []float32 {
	r := ss.Rays()
	return ss.V[step*r : (step+1)*r]
}

// SliceSteps returns a view of steps [lo, hi) sharing storage with ss.
// Chunked integration uses it to walk disjoint step ranges.
func (ss *StepSet) SliceSteps(lo, hi int) *StepSet {
	r := ss.Rays()
	return &StepSet{
		Steps: hi - lo,
		Shape: ss.Shape,
		V:     ss.V[lo*r : hi*r],
	}
}

// Padded returns a copy of ss with one extra trailing row holding final,
// marking the end of the last integration interval.
func (ss *StepSet) Padded(final []float32) (*StepSet, error) {
	r := ss.Rays()
	if len(final) != r {
		return nil, fmt.Errorf("%w: final boundary row has %d entries for %d rays", ErrShapeMismatch, len(final), r)
	}
	out := NewStepSet(ss.Steps+1, ss.Shape)
	copy(out.V, ss.V)
	copy(out.V[ss.Steps*r:], final)
	return out, nil
}

// Weights carries one non-negative scalar per ray step, aligned with a
// StepSet of the same Steps and Shape. Weights are only meaningful relative
// to other weights on the same ray.
type Weights struct {
	Steps int       // number of steps T
	Shape Shape     // leading batch dimensions
	W     []float32 // weight values, T×R
}

// NewWeights allocates a zeroed weight set.
func NewWeights(steps int, shape Shape) *Weights {
	return &Weights{
		Steps: steps,
		Shape: shape.Clone(),
		W:     make([]float32, steps*shape.Count()),
	}
}

// Rays returns the number of rays covered by the weights.
func (w *Weights) Rays() int {
	return w.Shape.Count()
}

// At returns the weight for (step, ray).
func (w *Weights) At(step, ray int) float32 {
	return w.W[step*w.Rays()+ray]
}

// Floor raises every weight below min up to min. Callers of the informed
// resampler use it to rule out all-zero weight rows beforehand.
func (w *Weights) Floor(min float32) {
	for i, v := range w.W {
		if v < min {
			w.W[i] = min
		}
	}
}

// FieldSamples holds radiance-field outputs for every (step, ray) sample:
// an emitted color vector and a non-negative density. Entries for samples
// the spatial filter rejected stay zero.
type FieldSamples struct {
	Steps    int       // number of steps T
	Channels int       // color channels C
	Shape    Shape     // leading batch dimensions
	Color    []float32 // colors, T×R×C; sample (t,r) at [(t*R+r)*C : (t*R+r+1)*C]
	Density  []float32 // densities, T×R
}

// NewFieldSamples allocates zeroed samples.
func NewFieldSamples(steps int, shape Shape, channels int) *FieldSamples {
	r := shape.Count()
	return &FieldSamples{
		Steps:    steps,
		Channels: channels,
		Shape:    shape.Clone(),
		Color:    make([]float32, steps*r*channels),
		Density:  make([]float32, steps*r),
	}
}

// Rays returns the number of rays covered by the samples.
func (fs *FieldSamples) Rays() int {
	return fs.Shape.Count()
}

// SliceSteps returns a view of steps [lo, hi) sharing storage with fs.
func (fs *FieldSamples) SliceSteps(lo, hi int) *FieldSamples {
	r := fs.Rays()
	return &FieldSamples{
		Steps:    hi - lo,
		Channels: fs.Channels,
		Shape:    fs.Shape,
		Color:    fs.Color[lo*r*fs.Channels : hi*r*fs.Channels],
		Density:  fs.Density[lo*r : hi*r],
	}
}
