package core

// RadianceField is the queried scene model: given flat sample positions
// (N×3) and optional per-sample view conditioning (N×CondDims), it returns
// emitted colors (N×ColorDims) and non-negative densities (N). cond may be
// nil when CondDims is zero. Implementations must be safe for concurrent
// calls.
type RadianceField interface {
	Radiance(points, cond []float32) (color, density []float32, err error)
	ColorDims() int
	CondDims() int
}

// SpatialFilter prunes sample positions before the field is queried.
// Test returns one bool per point (N×3 flat input); rejected samples keep
// zero color and density. Implementations must be safe for concurrent
// calls.
type SpatialFilter interface {
	Test(points []float32) []bool
}
