package sampling

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/df07/go-radiance/pkg/core"
)

// DefaultEps is the CDF boundary slack and solve guard of the informed
// resampler. It must stay small against typical weight magnitudes or the
// inverse mapping visibly biases toward tnear.
const DefaultEps = 1e-5

// ErrDegenerateWeights is returned when a ray's weight sum is zero or not
// finite and no distribution can be formed. Callers are expected to floor
// weights before resampling rather than rely on recovery here.
var ErrDegenerateWeights = errors.New("sampling: degenerate weight distribution")

// InformedSampler redraws ray steps so their local density follows a given
// per-step weight distribution. It inverts the piecewise-linear CDF of the
// normalized weights: each pair of adjacent (t, cdf) knots is treated as a
// projective line a·t + b·u + c = 0 obtained by a cross product, and a
// uniform sample u is mapped back to t by solving that segment's line.
// The construction is independent of where the weights came from.
type InformedSampler struct {
	Samples int     // number of samples to generate per ray
	Seed    uint64  // render seed, shared across samplers of one render
	Eps     float32 // boundary and solve epsilon
}

// NewInformedSampler creates an informed resampler. A non-positive sample
// count falls back to DefaultBins and a zero epsilon to DefaultEps.
func NewInformedSampler(samples int, seed uint64) *InformedSampler {
	if samples <= 0 {
		samples = DefaultBins
	}
	return &InformedSampler{Samples: samples, Seed: seed, Eps: DefaultEps}
}

// Resample draws Samples new steps per ray distributed according to
// weights over the knots ts, bounded by each ray's [tnear, tfar]. Inputs
// must share steps and batch shape; ts must be ascending per ray. The
// output is ascending per ray and lies within the ray interval.
//
// Sorted uniforms are generated by normalizing cumulative sums of unit
// exponentials, which yields exactly the joint distribution of sorted
// i.i.d. uniforms without a sort. Segment lookup then degenerates to a
// single merge scan over the ascending u and cdf sequences.
func (s *InformedSampler) Resample(ts *core.StepSet, weights *core.Weights, rays *core.RayBundle) (*core.StepSet, error) {
	if ts.Steps != weights.Steps {
		return nil, fmt.Errorf("%w: %d steps vs %d weights", core.ErrShapeMismatch, ts.Steps, weights.Steps)
	}
	if err := core.CheckSame("steps vs weights", ts.Shape, weights.Shape); err != nil {
		return nil, err
	}
	if err := core.CheckSame("steps vs rays", ts.Shape, rays.Shape); err != nil {
		return nil, err
	}

	eps := s.Eps
	if eps == 0 {
		eps = DefaultEps
	}

	r := rays.Rays()
	steps := ts.Steps
	out := core.NewStepSet(s.Samples, rays.Shape)

	// Knots k=0..steps+1 span (tnear,-eps) .. (tfar,1+eps); scratch is
	// reused across rays.
	knotT := make([]float32, steps+2)
	knotC := make([]float32, steps+2)
	ucum := make([]float64, s.Samples+1)

	for ri := 0; ri < r; ri++ {
		var sum float32
		for i := 0; i < steps; i++ {
			sum += weights.W[i*r+ri]
		}
		// !(sum > 0) also catches NaN sums; an Inf sum would normalize
		// every finite weight to zero mass.
		if !(sum > 0) || math32.IsInf(sum, 1) {
			return nil, fmt.Errorf("%w: ray %d has weight sum %v", ErrDegenerateWeights, ri, sum)
		}

		knotT[0], knotC[0] = rays.TNear[ri], -eps
		var cum float32
		for i := 0; i < steps; i++ {
			cum += weights.W[i*r+ri] / sum
			knotT[i+1] = ts.V[i*r+ri]
			knotC[i+1] = cum
		}
		knotT[steps+1], knotC[steps+1] = rays.TFar[ri], 1+eps

		rng := core.RayRand(s.Seed, core.StreamInformed, rays.ID[ri])
		var ecum float64
		for j := range ucum {
			ecum += rng.ExpFloat64()
			ucum[j] = ecum
		}

		// u ascends, so the segment index only moves forward. The scan
		// settles on the greatest knot with cdf <= u; duplicate cdf values
		// from zero-weight steps are skipped over, so the solved segment
		// always has positive mass.
		seg := 0
		lastSeg := steps // segments k=0..steps between knots k and k+1
		for j := 0; j < s.Samples; j++ {
			u := float32(ucum[j] / ucum[s.Samples])
			for seg < lastSeg && knotC[seg+1] <= u {
				seg++
			}
			a := knotC[seg+1] - knotC[seg]
			b := knotT[seg] - knotT[seg+1]
			c := knotT[seg+1]*knotC[seg] - knotC[seg+1]*knotT[seg]
			out.V[j*r+ri] = -(b*u + c) / (a + eps)
		}
	}
	return out, nil
}
