package core

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRayBundlePointsAt(t *testing.T) {
	rb := NewRayBundle(Shape{2})
	rb.SetRay(0, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0})
	rb.SetRay(1, mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, 2})

	ts := NewStepSet(2, Shape{2})
	copy(ts.V, []float32{0.5, 1.0, 2.0, 3.0}) // step-major: step 0 for both rays, then step 1

	pts, err := rb.PointsAt(ts)
	if err != nil {
		t.Fatalf("PointsAt returned error: %v", err)
	}

	expected := []float32{
		0.5, 0, 0, // ray 0 at t=0.5
		1, 2, 5, // ray 1 at t=1.0, direction not normalized
		2, 0, 0, // ray 0 at t=2.0
		1, 2, 9, // ray 1 at t=3.0
	}
	for i, want := range expected {
		if pts[i] != want {
			t.Errorf("points[%d] = %v, expected %v", i, pts[i], want)
		}
	}
}

func TestRayBundlePointsAtShapeMismatch(t *testing.T) {
	rb := NewRayBundle(Shape{2})
	ts := NewStepSet(2, Shape{3})
	if _, err := rb.PointsAt(ts); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for mismatched step set, got %v", err)
	}
}

func TestRayBundleDNorm(t *testing.T) {
	rb := NewRayBundle(Shape{1})
	rb.SetRay(0, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{3, 4, 0})
	if math.Abs(float64(rb.DNorm[0])-5.0) > 1e-6 {
		t.Errorf("DNorm = %v, expected 5", rb.DNorm[0])
	}

	// Mutating D directly requires an explicit refresh
	rb.D[0], rb.D[1], rb.D[2] = 0, 0, 2
	rb.UpdateDNorm()
	if math.Abs(float64(rb.DNorm[0])-2.0) > 1e-6 {
		t.Errorf("DNorm after UpdateDNorm = %v, expected 2", rb.DNorm[0])
	}
}

func TestRayBundleActiveMask(t *testing.T) {
	rb := NewRayBundle(Shape{4})
	rb.TNear[0], rb.TFar[0] = 0.1, 2.0 // active
	rb.TNear[1], rb.TFar[1] = 1.0, 1.0 // empty interval
	rb.TNear[2], rb.TFar[2] = 1.0, 0.0 // inverted, clipped away
	rb.TNear[3], rb.TFar[3] = 0.0, 0.5 // active

	mask, n := rb.ActiveMask()
	if n != 2 {
		t.Errorf("Active count = %d, expected 2", n)
	}
	expected := []bool{true, false, false, true}
	for i, want := range expected {
		if mask[i] != want {
			t.Errorf("mask[%d] = %v, expected %v", i, mask[i], want)
		}
	}
}

func TestRayBundleFilter(t *testing.T) {
	rb := NewRayBundle(Shape{4})
	for i := 0; i < 4; i++ {
		rb.SetRay(i, mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{0, 0, 1})
		rb.TNear[i] = float32(i)
		rb.TFar[i] = float32(i) + 1
	}
	rb.ID = []uint64{10, 11, 12, 13}

	sub, err := rb.Filter([]bool{true, false, false, true})
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}

	if sub.Rays() != 2 {
		t.Fatalf("Filtered bundle has %d rays, expected 2", sub.Rays())
	}
	if !sub.Shape.Equal(Shape{2}) {
		t.Errorf("Filtered shape = %v, expected (2)", sub.Shape)
	}
	if sub.O[0] != 0 || sub.O[3] != 3 {
		t.Errorf("Filtered origins = %v, expected rays 0 and 3", sub.O)
	}
	if sub.ID[0] != 10 || sub.ID[1] != 13 {
		t.Errorf("Filtered IDs = %v, expected [10 13]", sub.ID)
	}
	if sub.TNear[1] != 3 || sub.TFar[1] != 4 {
		t.Errorf("Filtered ranges not preserved: [%v, %v)", sub.TNear[1], sub.TFar[1])
	}

	if _, err := rb.Filter([]bool{true}); err == nil {
		t.Error("Expected error for mask length mismatch")
	}
}
