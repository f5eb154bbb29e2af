package sampling

import (
	"github.com/df07/go-radiance/pkg/core"
)

// DefaultBins is the step count samplers fall back to when none is given.
const DefaultBins = 256

// StepSampler produces candidate integration steps along each ray of a
// bundle. Implementations must emit ascending values per ray and must be
// deterministic given their seed and the bundle's ray IDs.
type StepSampler interface {
	Sample(rays *core.RayBundle) (*core.StepSet, error)
}

// StratifiedSampler divides each ray's [tnear, tfar) interval into equal
// strata and draws one uniform sample per stratum. One sample per stratum
// keeps the output sorted by construction, no explicit sort needed.
type StratifiedSampler struct {
	Bins int    // number of strata per ray
	Seed uint64 // render seed, shared across samplers of one render
}

// NewStratifiedSampler creates a stratified sampler. A non-positive bin
// count falls back to DefaultBins.
func NewStratifiedSampler(bins int, seed uint64) *StratifiedSampler {
	if bins <= 0 {
		bins = DefaultBins
	}
	return &StratifiedSampler{Bins: bins, Seed: seed}
}

// Sample draws one step per stratum for every ray. Each ray consumes its
// own random stream keyed by ray ID, so results do not depend on how rays
// are batched or chunked. Rays with empty intervals produce coincident
// values at tnear; callers normally compact those away beforehand.
func (s *StratifiedSampler) Sample(rays *core.RayBundle) (*core.StepSet, error) {
	r := rays.Rays()
	ts := core.NewStepSet(s.Bins, rays.Shape)
	inv := 1 / float32(s.Bins)

	for ri := 0; ri < r; ri++ {
		rng := core.RayRand(s.Seed, core.StreamStratified, rays.ID[ri])
		tn := rays.TNear[ri]
		width := rays.TFar[ri] - tn
		for i := 0; i < s.Bins; i++ {
			u := rng.Float32()
			ts.V[i*r+ri] = tn + (float32(i)+u)*inv*width
		}
	}
	return ts, nil
}
