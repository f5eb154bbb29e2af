package sampling

import (
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-radiance/pkg/core"
)

func makeTestRays(n int, tnear, tfar float32) *core.RayBundle {
	rays := core.NewRayBundle(core.Shape{n})
	for i := 0; i < n; i++ {
		rays.O[i*3+2] = -1
		rays.D[i*3+2] = 1
		rays.DNorm[i] = 1
		rays.TNear[i] = tnear
		rays.TFar[i] = tfar
	}
	return rays
}

func TestStratifiedSamplerBounds(t *testing.T) {
	rays := makeTestRays(16, 0.5, 2.5)
	sampler := NewStratifiedSampler(32, 7)

	ts, err := sampler.Sample(rays)
	if err != nil {
		t.Fatalf("Sample returned error: %v", err)
	}
	if ts.Steps != 32 || !ts.Shape.Equal(rays.Shape) {
		t.Fatalf("Output dims (%d, %v), expected (32, %v)", ts.Steps, ts.Shape, rays.Shape)
	}

	width := float32(2.0)
	for ri := 0; ri < rays.Rays(); ri++ {
		for i := 0; i < ts.Steps; i++ {
			v := ts.At(i, ri)
			lo := 0.5 + float32(i)/32*width
			hi := 0.5 + float32(i+1)/32*width
			if v < lo || v > hi {
				t.Fatalf("Ray %d step %d = %v outside its stratum [%v, %v]", ri, i, v, lo, hi)
			}
			if i > 0 && v < ts.At(i-1, ri) {
				t.Fatalf("Ray %d steps not ascending at %d: %v then %v", ri, i, ts.At(i-1, ri), v)
			}
		}
	}
}

func TestStratifiedSamplerDegenerateInterval(t *testing.T) {
	rays := makeTestRays(4, 1.5, 1.5)
	ts, err := NewStratifiedSampler(8, 1).Sample(rays)
	if err != nil {
		t.Fatalf("Sample returned error: %v", err)
	}
	for i, v := range ts.V {
		if v != 1.5 {
			t.Errorf("V[%d] = %v, expected all samples coincident at 1.5", i, v)
		}
	}
}

func TestStratifiedSamplerChunkInvariance(t *testing.T) {
	rays := makeTestRays(8, 0, 1)
	sampler := NewStratifiedSampler(16, 99)

	full, err := sampler.Sample(rays)
	if err != nil {
		t.Fatalf("Sample returned error: %v", err)
	}

	// A compacted sub-bundle keeps its ray IDs, so its samples must match
	// the corresponding columns of the full batch exactly.
	mask := []bool{false, true, false, false, true, true, false, true}
	sub, err := rays.Filter(mask)
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	part, err := sampler.Sample(sub)
	if err != nil {
		t.Fatalf("Sample returned error: %v", err)
	}

	col := 0
	for ri, keep := range mask {
		if !keep {
			continue
		}
		for i := 0; i < 16; i++ {
			if part.At(i, col) != full.At(i, ri) {
				t.Fatalf("Ray %d step %d differs after compaction: %v vs %v", ri, i, part.At(i, col), full.At(i, ri))
			}
		}
		col++
	}
}

func TestStratifiedSamplerUniformity(t *testing.T) {
	rays := makeTestRays(200, 0, 1)
	ts, err := NewStratifiedSampler(64, 3).Sample(rays)
	if err != nil {
		t.Fatalf("Sample returned error: %v", err)
	}

	// Pooled over strata the marginal distribution is uniform on [0,1].
	pooled := make([]float64, len(ts.V))
	for i, v := range ts.V {
		pooled[i] = float64(v)
	}
	mean := stat.Mean(pooled, nil)
	variance := stat.Variance(pooled, nil)

	if mean < 0.49 || mean > 0.51 {
		t.Errorf("Pooled mean = %v, expected 0.5 within 0.01", mean)
	}
	if variance < 1.0/12-0.01 || variance > 1.0/12+0.01 {
		t.Errorf("Pooled variance = %v, expected 1/12 within 0.01", variance)
	}
}
