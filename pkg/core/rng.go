package core

import "math/rand/v2"

// Stream constants separate the random streams drawn against a single
// render seed, so stratified jitter, informed resampling and pixel
// selection never correlate even for the same ray.
const (
	StreamStratified uint64 = 0x9e3779b97f4a7c15
	StreamInformed   uint64 = 0xbf58476d1ce4e5b9
	StreamPixels     uint64 = 0x94d049bb133111eb
)

// RayRand returns the random source for one ray (or pixel) of one stream.
// The stream depends only on (seed, stream, id), never on batch or chunk
// boundaries, which keeps chunked renders bit-identical to unchunked ones.
func RayRand(seed, stream, id uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed^stream, id))
}
