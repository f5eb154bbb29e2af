package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrShapeMismatch is returned when batch shapes disagree at a component
// boundary. Mismatches are precondition violations and are never papered
// over by broadcasting.
var ErrShapeMismatch = errors.New("core: batch shape mismatch")

// ErrChannelMismatch is returned when color channel counts disagree, such
// as scattering an RGB chunk into an RGBA map.
var ErrChannelMismatch = errors.New("core: channel count mismatch")

// Shape describes the leading batch dimensions shared by the per-ray fields
// of a batch, e.g. (views, rays) for a sampled batch or (views, height,
// width) for a full raster. Trailing component dimensions (1 or 3 or C) are
// not part of the Shape; they are fixed by each field's type.
type Shape []int

// Count returns the total number of rays described by the shape.
func (s Shape) Count() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

// String formats the shape as "(d0, d1, ...)".
func (s Shape) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, d := range s {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(d))
	}
	sb.WriteByte(')')
	return sb.String()
}

// CheckSame verifies that two batch shapes match, returning a descriptive
// ErrShapeMismatch naming the offending boundary otherwise.
func CheckSame(label string, a, b Shape) error {
	if !a.Equal(b) {
		return fmt.Errorf("%w: %s: %s vs %s", ErrShapeMismatch, label, a, b)
	}
	return nil
}
