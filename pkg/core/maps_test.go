package core

import (
	"errors"
	"testing"
)

func TestNewMapSetFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags MapFlags
		color bool
		alpha bool
		depth bool
	}{
		{"default", DefaultMaps, true, true, false},
		{"color only", MapColor, true, false, false},
		{"all", MapColor | MapAlpha | MapDepth, true, true, true},
		{"depth only", MapDepth, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := NewMapSet(Shape{4}, 3, tt.flags)
			if (ms.Color != nil) != tt.color || (ms.Alpha != nil) != tt.alpha || (ms.Depth != nil) != tt.depth {
				t.Errorf("flags %b allocated (color=%t alpha=%t depth=%t), expected (%t %t %t)",
					tt.flags, ms.Color != nil, ms.Alpha != nil, ms.Depth != nil, tt.color, tt.alpha, tt.depth)
			}
			if ms.Color != nil && ms.Color.Channels != 3 {
				t.Errorf("color channels = %d, expected 3", ms.Color.Channels)
			}
			if ms.Alpha != nil && ms.Alpha.Channels != 1 {
				t.Errorf("alpha channels = %d, expected 1", ms.Alpha.Channels)
			}
		})
	}
}

func TestDefaultMapFlags(t *testing.T) {
	if !DefaultMaps.Has(MapColor) || !DefaultMaps.Has(MapAlpha) || DefaultMaps.Has(MapDepth) {
		t.Error("DefaultMaps should select color and alpha only")
	}
}

func TestMapScatter(t *testing.T) {
	dst := NewMap(Shape{5}, 2)
	src := NewMap(Shape{2}, 2)
	copy(src.V, []float32{1, 2, 3, 4})

	if err := dst.Scatter(src, []int{3, 0}); err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}

	want := []float32{3, 4, 0, 0, 0, 0, 1, 2, 0, 0}
	for i, v := range want {
		if dst.V[i] != v {
			t.Errorf("dst.V[%d] = %v, expected %v", i, dst.V[i], v)
		}
	}
}

func TestMapScatterMismatch(t *testing.T) {
	dst := NewMap(Shape{4}, 3)

	rgba := NewMap(Shape{2}, 4)
	if err := dst.Scatter(rgba, []int{0, 1}); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("Scatter with 4 channels into 3 returned %v, expected ErrChannelMismatch", err)
	}

	rgb := NewMap(Shape{2}, 3)
	if err := dst.Scatter(rgb, []int{0}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Scatter with 1 index for 2 rays returned %v, expected ErrShapeMismatch", err)
	}
}

func TestMapSetScatterSkipsMissing(t *testing.T) {
	dst := NewMapSet(Shape{4}, 3, MapColor|MapAlpha)
	src := NewMapSet(Shape{1}, 3, MapColor)
	src.Color.V[0], src.Color.V[1], src.Color.V[2] = 7, 8, 9

	if err := dst.Scatter(src, []int{2}); err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	if dst.Color.At(2, 0) != 7 || dst.Color.At(2, 2) != 9 {
		t.Errorf("color row 2 = %v, expected scattered values", dst.Color.Row(2))
	}
	for i, v := range dst.Alpha.V {
		if v != 0 {
			t.Errorf("alpha[%d] = %v, expected untouched zero", i, v)
		}
	}
}
