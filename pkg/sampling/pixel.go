package sampling

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/df07/go-radiance/pkg/core"
)

// subpixelBounds keeps random normalized coordinates strictly inside
// (-1, 1) so snapping to pixel centers cannot round out of the grid.
const subpixelBounds = 1.0 - 1e-7

// ImageSet holds per-view feature planes in channel-major (views,
// channels, height, width) layout, the layout training images arrive in.
type ImageSet struct {
	Views    int
	Channels int
	Height   int
	Width    int
	V        []float32
}

// NewImageSet allocates a zeroed image set.
func NewImageSet(views, channels, height, width int) *ImageSet {
	return &ImageSet{
		Views:    views,
		Channels: channels,
		Height:   height,
		Width:    width,
		V:        make([]float32, views*channels*height*width),
	}
}

// At returns one sample, clamping coordinates to the border.
func (im *ImageSet) At(view, ch, y, x int) float32 {
	x = clampIndex(x, im.Width)
	y = clampIndex(y, im.Height)
	return im.V[((view*im.Channels+ch)*im.Height+y)*im.Width+x]
}

// Set stores one sample.
func (im *ImageSet) Set(view, ch, y, x int, v float32) {
	im.V[((view*im.Channels+ch)*im.Height+y)*im.Width+x] = v
}

// Gather interpolates features at the batch's pixel coordinates, one
// Channels-sized vector per pixel in batch order. Subpixel batches are
// sampled bilinearly, snapped batches with nearest lookup; positions past
// the border clamp to the border pixel. The batch must cover all views
// with the same pixel count per view.
func (im *ImageSet) Gather(pb *core.PixelBatch, subpixel bool) ([]float32, error) {
	n := pb.Count()
	if im.Views <= 0 || n%im.Views != 0 {
		return nil, fmt.Errorf("%w: batch %s does not split across %d views", core.ErrShapeMismatch, pb.Shape, im.Views)
	}
	perView := n / im.Views

	out := make([]float32, n*im.Channels)
	for i := 0; i < n; i++ {
		view := i / perView
		u, v := pb.At(i)
		if subpixel {
			x0 := math32.Floor(u)
			y0 := math32.Floor(v)
			fx := u - x0
			fy := v - y0
			ix, iy := int(x0), int(y0)
			for c := 0; c < im.Channels; c++ {
				top := im.At(view, c, iy, ix)*(1-fx) + im.At(view, c, iy, ix+1)*fx
				bot := im.At(view, c, iy+1, ix)*(1-fx) + im.At(view, c, iy+1, ix+1)*fx
				out[i*im.Channels+c] = top*(1-fy) + bot*fy
			}
		} else {
			ix := int(math32.Round(u))
			iy := int(math32.Round(v))
			for c := 0; c < im.Channels; c++ {
				out[i*im.Channels+c] = im.At(view, c, iy, ix)
			}
		}
	}
	return out, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// RandomPixelSampler is an endless source of uniformly random pixel
// coordinates over a multi-view grid. Pixels are squares with integer
// centers, so coordinates span [-0.5, size-0.5) per axis; with Subpixel
// off they snap to the nearest center, possibly with duplicates. Each
// sampler owns its random state and replays exactly given the same seed.
type RandomPixelSampler struct {
	Views          int
	Width          int
	Height         int
	SamplesPerView int
	Subpixel       bool
	Seed           uint64
	Image          *ImageSet // optional, gathered per batch when set

	rng *rand.Rand
}

// NewRandomPixelSampler creates a random pixel sampler. A non-positive
// sample count falls back to the grid width, matching one image row worth
// of pixels per view and batch.
func NewRandomPixelSampler(views, width, height, samplesPerView int, subpixel bool, seed uint64) *RandomPixelSampler {
	if samplesPerView <= 0 {
		samplesPerView = width
	}
	return &RandomPixelSampler{
		Views:          views,
		Width:          width,
		Height:         height,
		SamplesPerView: samplesPerView,
		Subpixel:       subpixel,
		Seed:           seed,
	}
}

// NextBatch draws the next batch of coordinates, shaped (views, samples),
// plus gathered features when an image set is attached. Pixel IDs are the
// global index of the nearest pixel center. An attached image set whose
// views disagree with the batch fails the call.
func (s *RandomPixelSampler) NextBatch() (*core.PixelBatch, []float32, error) {
	if s.rng == nil {
		s.rng = core.RayRand(s.Seed, core.StreamPixels, 0)
	}

	pb := core.NewPixelBatch(core.Shape{s.Views, s.SamplesPerView})
	for i := 0; i < pb.Count(); i++ {
		view := i / s.SamplesPerView
		u := snapToGrid(s.rng.Float32(), s.Width)
		v := snapToGrid(s.rng.Float32(), s.Height)
		if !s.Subpixel {
			u = math32.Round(u)
			v = math32.Round(v)
		}
		pb.Set(i, u, v)
		ix := clampIndex(int(math32.Round(u)), s.Width)
		iy := clampIndex(int(math32.Round(v)), s.Height)
		pb.ID[i] = uint64(view*s.Height*s.Width + iy*s.Width + ix)
	}

	var features []float32
	if s.Image != nil {
		var err error
		if features, err = s.Image.Gather(pb, s.Subpixel); err != nil {
			return nil, nil, err
		}
	}
	return pb, features, nil
}

// Reset rewinds the sampler to the start of its random sequence.
func (s *RandomPixelSampler) Reset() {
	s.rng = nil
}

// snapToGrid maps a uniform draw in [0,1) to a pixel coordinate strictly
// inside the valid sampling area of an n-wide axis.
func snapToGrid(u float32, n int) float32 {
	un := (2*u - 1) * subpixelBounds
	return (un+1)*float32(n)*0.5 - 0.5
}

// SequentialPixelSampler walks the full multi-view pixel grid in row-major
// order, emitting fixed-size chunks of pixel centers. It is finite and
// restartable from the beginning, the access pattern full-image renders
// rely on to reassemble chunks by concatenation.
type SequentialPixelSampler struct {
	Views          int
	Width          int
	Height         int
	SamplesPerView int
	Passes         int
	Image          *ImageSet // optional, gathered per batch when set

	pos  int
	pass int
}

// NewSequentialPixelSampler creates a sequential sampler covering the grid
// in Passes full sweeps. A non-positive sample count falls back to the
// grid width and a non-positive pass count to one.
func NewSequentialPixelSampler(views, width, height, samplesPerView, passes int) *SequentialPixelSampler {
	if samplesPerView <= 0 {
		samplesPerView = width
	}
	if passes <= 0 {
		passes = 1
	}
	return &SequentialPixelSampler{
		Views:          views,
		Width:          width,
		Height:         height,
		SamplesPerView: samplesPerView,
		Passes:         passes,
	}
}

// NextBatch returns the next chunk of pixel centers, shaped (views, m)
// with m = SamplesPerView except for a shorter final chunk per sweep, plus
// gathered features when an image set is attached. A nil batch marks the
// end of the last pass; an attached image set whose views disagree with
// the batch fails the call.
func (s *SequentialPixelSampler) NextBatch() (*core.PixelBatch, []float32, error) {
	total := s.Height * s.Width
	if s.pass >= s.Passes || total == 0 {
		return nil, nil, nil
	}

	m := s.SamplesPerView
	if s.pos+m > total {
		m = total - s.pos
	}

	pb := core.NewPixelBatch(core.Shape{s.Views, m})
	for view := 0; view < s.Views; view++ {
		for j := 0; j < m; j++ {
			idx := s.pos + j
			x := idx % s.Width
			y := idx / s.Width
			i := view*m + j
			pb.Set(i, float32(x), float32(y))
			pb.ID[i] = uint64(view*total + idx)
		}
	}

	s.pos += m
	if s.pos >= total {
		s.pos = 0
		s.pass++
	}

	var features []float32
	if s.Image != nil {
		var err error
		if features, err = s.Image.Gather(pb, false); err != nil {
			return nil, nil, err
		}
	}
	return pb, features, nil
}

// Reset rewinds the sampler to the first chunk of the first pass.
func (s *SequentialPixelSampler) Reset() {
	s.pos = 0
	s.pass = 0
}
