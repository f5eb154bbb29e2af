package sampling

import (
	"errors"
	"testing"

	"github.com/df07/go-radiance/pkg/core"
)

// newBatchAt builds a one-pixel batch at the given coordinate.
func newBatchAt(u, v float32) *core.PixelBatch {
	pb := core.NewPixelBatch(core.Shape{1, 1})
	pb.Set(0, u, v)
	return pb
}

func TestRandomPixelSamplerBounds(t *testing.T) {
	s := NewRandomPixelSampler(2, 8, 6, 16, true, 1)
	pb, _, err := s.NextBatch()
	if err != nil {
		t.Fatalf("NextBatch returned error: %v", err)
	}

	if !pb.Shape.Equal(core.Shape{2, 16}) {
		t.Fatalf("Batch shape = %v, expected (2, 16)", pb.Shape)
	}
	for i := 0; i < pb.Count(); i++ {
		u, v := pb.At(i)
		if u < -0.5 || u >= 7.5 {
			t.Errorf("u[%d] = %v outside [-0.5, 7.5)", i, u)
		}
		if v < -0.5 || v >= 5.5 {
			t.Errorf("v[%d] = %v outside [-0.5, 5.5)", i, v)
		}
		if pb.ID[i] >= 2*6*8 {
			t.Errorf("ID[%d] = %d outside the pixel grid", i, pb.ID[i])
		}
	}
}

func TestRandomPixelSamplerSnapped(t *testing.T) {
	s := NewRandomPixelSampler(1, 8, 6, 64, false, 3)
	pb, _, err := s.NextBatch()
	if err != nil {
		t.Fatalf("NextBatch returned error: %v", err)
	}

	for i := 0; i < pb.Count(); i++ {
		u, v := pb.At(i)
		if u != float32(int(u)) || v != float32(int(v)) {
			t.Errorf("Sample %d = (%v, %v), expected integer pixel centers", i, u, v)
		}
		if u < 0 || u > 7 || v < 0 || v > 5 {
			t.Errorf("Sample %d = (%v, %v) outside the grid", i, u, v)
		}
	}
}

func TestRandomPixelSamplerReplay(t *testing.T) {
	a := NewRandomPixelSampler(1, 8, 8, 32, true, 9)
	b := NewRandomPixelSampler(1, 8, 8, 32, true, 9)

	pa, _, _ := a.NextBatch()
	pb, _, _ := b.NextBatch()
	for i := range pa.UV {
		if pa.UV[i] != pb.UV[i] {
			t.Fatalf("Same seed diverged at %d: %v vs %v", i, pa.UV[i], pb.UV[i])
		}
	}

	// Second batch differs from the first, Reset rewinds to it
	second, _, _ := a.NextBatch()
	same := true
	for i := range pa.UV {
		if second.UV[i] != pa.UV[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected consecutive batches to differ")
	}

	a.Reset()
	replay, _, _ := a.NextBatch()
	for i := range pa.UV {
		if replay.UV[i] != pa.UV[i] {
			t.Fatalf("Reset did not replay batch at %d: %v vs %v", i, replay.UV[i], pa.UV[i])
		}
	}
}

func TestSequentialPixelSamplerCoversGrid(t *testing.T) {
	s := NewSequentialPixelSampler(2, 4, 3, 5, 1)

	var sizes []int
	seen := make(map[uint64]bool)
	for {
		pb, _, err := s.NextBatch()
		if err != nil {
			t.Fatalf("NextBatch returned error: %v", err)
		}
		if pb == nil {
			break
		}
		m := pb.Shape[1]
		sizes = append(sizes, m)
		for i := 0; i < pb.Count(); i++ {
			u, v := pb.At(i)
			view := i / m
			idx := pb.ID[i]
			if seen[idx] {
				t.Fatalf("Pixel ID %d emitted twice", idx)
			}
			seen[idx] = true
			want := uint64(view*12) + uint64(v)*4 + uint64(u)
			if idx != want {
				t.Errorf("ID = %d for view %d pixel (%v, %v), expected %d", idx, view, u, v, want)
			}
		}
	}

	if len(sizes) != 3 || sizes[0] != 5 || sizes[1] != 5 || sizes[2] != 2 {
		t.Errorf("Chunk sizes = %v, expected [5 5 2]", sizes)
	}
	if len(seen) != 2*12 {
		t.Errorf("Covered %d pixels, expected all %d", len(seen), 2*12)
	}

	// Exhausted until reset
	if pb, _, _ := s.NextBatch(); pb != nil {
		t.Error("Expected exhausted sampler to return a nil batch")
	}
	s.Reset()
	if pb, _, _ := s.NextBatch(); pb == nil {
		t.Error("Expected reset sampler to produce batches again")
	}
}

func TestSequentialPixelSamplerPasses(t *testing.T) {
	s := NewSequentialPixelSampler(1, 2, 2, 4, 3)
	batches := 0
	for {
		pb, _, err := s.NextBatch()
		if err != nil {
			t.Fatalf("NextBatch returned error: %v", err)
		}
		if pb == nil {
			break
		}
		batches++
	}
	if batches != 3 {
		t.Errorf("Got %d batches, expected one per pass", batches)
	}
}

func TestImageSetGather(t *testing.T) {
	im := NewImageSet(1, 1, 2, 4)
	for x := 0; x < 4; x++ {
		im.Set(0, 0, 0, x, float32(x))
		im.Set(0, 0, 1, x, float32(x)+10)
	}

	s := NewSequentialPixelSampler(1, 4, 2, 8, 1)
	s.Image = im
	pb, features, err := s.NextBatch()
	if err != nil {
		t.Fatalf("NextBatch returned error: %v", err)
	}
	if pb == nil || features == nil {
		t.Fatal("Expected batch with gathered features")
	}
	for i := 0; i < pb.Count(); i++ {
		u, v := pb.At(i)
		want := u + v*10
		if features[i] != want {
			t.Errorf("Feature at (%v, %v) = %v, expected %v", u, v, features[i], want)
		}
	}
}

func TestImageSetGatherBilinear(t *testing.T) {
	im := NewImageSet(1, 2, 1, 2)
	im.Set(0, 0, 0, 0, 0)
	im.Set(0, 0, 0, 1, 1)
	im.Set(0, 1, 0, 0, 4)
	im.Set(0, 1, 0, 1, 8)

	pb := newBatchAt(0.25, 0)
	got, err := im.Gather(pb, true)
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if got[0] != 0.25 || got[1] != 5 {
		t.Errorf("Bilinear sample = %v, expected [0.25 5]", got)
	}

	// Border clamp beyond the right edge
	pb = newBatchAt(5.0, 0)
	got, err = im.Gather(pb, true)
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if got[0] != 1 || got[1] != 8 {
		t.Errorf("Clamped sample = %v, expected [1 8]", got)
	}
}

func TestPixelSamplerImageViewMismatch(t *testing.T) {
	// Three image views cannot host a two-view batch; both samplers must
	// surface the gather failure rather than hand back nil features.
	im := NewImageSet(3, 1, 4, 4)

	seq := NewSequentialPixelSampler(2, 4, 4, 8, 1)
	seq.Image = im
	if _, _, err := seq.NextBatch(); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("Sequential NextBatch returned %v, expected ErrShapeMismatch", err)
	}

	rnd := NewRandomPixelSampler(2, 4, 4, 8, true, 1)
	rnd.Image = im
	if _, _, err := rnd.NextBatch(); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("Random NextBatch returned %v, expected ErrShapeMismatch", err)
	}
}
