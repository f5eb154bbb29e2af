package core

import (
	"errors"
	"testing"
)

func TestShapeCount(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		expected int
	}{
		{"scalar batch", Shape{}, 1},
		{"flat rays", Shape{4096}, 4096},
		{"views by rays", Shape{2, 512}, 1024},
		{"full raster", Shape{3, 32, 48}, 4608},
		{"empty batch", Shape{2, 0, 48}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Count(); got != tt.expected {
				t.Errorf("Count() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestShapeEqual(t *testing.T) {
	a := Shape{2, 512}
	if !a.Equal(Shape{2, 512}) {
		t.Error("Expected equal shapes to compare equal")
	}
	if a.Equal(Shape{1024}) {
		t.Error("Expected shapes with different ranks to compare unequal, even with matching counts")
	}
	if a.Equal(Shape{2, 256}) {
		t.Error("Expected shapes with different dimensions to compare unequal")
	}
}

func TestShapeClone(t *testing.T) {
	a := Shape{2, 512}
	b := a.Clone()
	b[0] = 7
	if a[0] != 2 {
		t.Errorf("Clone shares storage: a[0] = %d after mutating clone", a[0])
	}
}

func TestCheckSame(t *testing.T) {
	if err := CheckSame("steps vs rays", Shape{2, 512}, Shape{2, 512}); err != nil {
		t.Errorf("CheckSame on matching shapes returned error: %v", err)
	}

	err := CheckSame("steps vs rays", Shape{2, 512}, Shape{512})
	if err == nil {
		t.Fatal("Expected error for mismatched shapes")
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}
