package core

// MapFlags selects which dense output maps a render produces.
type MapFlags uint8

const (
	// MapColor requests the composited color map.
	MapColor MapFlags = 1 << iota
	// MapAlpha requests the accumulated opacity map.
	MapAlpha
	// MapDepth requests the expected-depth map.
	MapDepth
)

// DefaultMaps is the map selection renders use unless told otherwise.
const DefaultMaps = MapColor | MapAlpha

// Has reports whether all maps in q are selected.
func (f MapFlags) Has(q MapFlags) bool {
	return f&q == q
}

// Map is a dense per-ray output plane: Channels values for each of the
// Shape.Count() rays, stored row-major as V[r*Channels+c].
type Map struct {
	Shape    Shape
	Channels int
	V        []float32
}

// NewMap allocates a zeroed map.
func NewMap(shape Shape, channels int) *Map {
	return &Map{
		Shape:    shape.Clone(),
		Channels: channels,
		V:        make([]float32, shape.Count()*channels),
	}
}

// At returns the value for (ray, channel).
func (m *Map) At(ray, channel int) float32 {
	return m.V[ray*m.Channels+channel]
}

// Row returns the channel values of one ray, sharing storage.
func (m *Map) Row(ray int) []float32 {
	return m.V[ray*m.Channels : (ray+1)*m.Channels]
}

// Scatter writes src's rows into m at the given destination ray indices.
// Rays of a chunk land back at their home pixels this way.
func (m *Map) Scatter(src *Map, dst []int) error {
	if src.Channels != m.Channels {
		return ErrChannelMismatch
	}
	if len(dst) != src.Shape.Count() {
		return CheckSame("scatter indices vs source rays", Shape{len(dst)}, src.Shape)
	}
	for i, d := range dst {
		copy(m.Row(d), src.Row(i))
	}
	return nil
}

// MapSet bundles the maps of one render. Unselected maps are nil.
type MapSet struct {
	Color *Map // C channels
	Alpha *Map // 1 channel
	Depth *Map // 1 channel
}

// NewMapSet allocates the maps selected by flags for a batch of rays with
// C color channels.
func NewMapSet(shape Shape, channels int, flags MapFlags) *MapSet {
	ms := &MapSet{}
	if flags.Has(MapColor) {
		ms.Color = NewMap(shape, channels)
	}
	if flags.Has(MapAlpha) {
		ms.Alpha = NewMap(shape, 1)
	}
	if flags.Has(MapDepth) {
		ms.Depth = NewMap(shape, 1)
	}
	return ms
}

// Scatter writes all maps of src into ms at the destination ray indices.
func (ms *MapSet) Scatter(src *MapSet, dst []int) error {
	if ms.Color != nil && src.Color != nil {
		if err := ms.Color.Scatter(src.Color, dst); err != nil {
			return err
		}
	}
	if ms.Alpha != nil && src.Alpha != nil {
		if err := ms.Alpha.Scatter(src.Alpha, dst); err != nil {
			return err
		}
	}
	if ms.Depth != nil && src.Depth != nil {
		if err := ms.Depth.Scatter(src.Depth, dst); err != nil {
			return err
		}
	}
	return nil
}
