package core

// PixelBatch is a set of pixel coordinates to trace, one (u, v) pair per
// entry in image space with u along width and v along height. IDs tie each
// pixel to its ray and its home slot in the output maps, so results of a
// compacted chunk can be scattered back.
type PixelBatch struct {
	Shape Shape     // leading batch dimensions
	UV    []float32 // coordinates, R×2
	ID    []uint64  // stable per-pixel identifiers, R
}

// NewPixelBatch allocates a zeroed pixel batch with linear IDs.
func NewPixelBatch(shape Shape) *PixelBatch {
	r := shape.Count()
	pb := &PixelBatch{
		Shape: shape.Clone(),
		UV:    make([]float32, r*2),
		ID:    make([]uint64, r),
	}
	for i := range pb.ID {
		pb.ID[i] = uint64(i)
	}
	return pb
}

// Count returns the number of pixels in the batch.
func (pb *PixelBatch) Count() int {
	return pb.Shape.Count()
}

// At returns the (u, v) coordinate of one pixel.
func (pb *PixelBatch) At(i int) (u, v float32) {
	return pb.UV[i*2], pb.UV[i*2+1]
}

// Set stores the (u, v) coordinate of one pixel.
func (pb *PixelBatch) Set(i int, u, v float32) {
	pb.UV[i*2] = u
	pb.UV[i*2+1] = v
}
