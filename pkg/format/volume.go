package format

import "fmt"

// Volume is a fully materialised dataset. Data holds every voxel in payload
// order (T outermost, X fastest). A Volume belongs to the caller that loaded
// or built it; nothing in this package keeps a reference to it.
type Volume struct {
	Metadata Metadata
	Data     []float32
}

// NewVolume allocates a zero-filled volume after validating the metadata and
// running the memory budget guard.
func NewVolume(m Metadata) (*Volume, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	required, err := Budget(m.Dimensions)
	if err != nil {
		return nil, err
	}
	return &Volume{
		Metadata: m,
		Data:     make([]float32, required/BytesPerVoxel),
	}, nil
}

// Dimensions is a shorthand for v.Metadata.Dimensions.
func (v *Volume) Dimensions() Dimensions {
	return v.Metadata.Dimensions
}

// FrameIndex returns the plane number of (t, p, z, c) in payload order.
func (d Dimensions) FrameIndex(t, p, z, c int) int {
	return ((t*d.P+p)*d.Z+z)*d.C + c
}

// FrameCoords is the inverse of FrameIndex.
func (d Dimensions) FrameCoords(frame int) (t, p, z, c int) {
	c = frame % d.C
	frame /= d.C
	z = frame % d.Z
	frame /= d.Z
	p = frame % d.P
	t = frame / d.P
	return t, p, z, c
}

// Contains reports whether every coordinate lies inside the dimensions.
func (d Dimensions) Contains(t, p, z, c, y, x int) bool {
	return d.containsFrame(t, p, z, c) && y >= 0 && y < d.Y && x >= 0 && x < d.X
}

func (d Dimensions) containsFrame(t, p, z, c int) bool {
	return t >= 0 && t < d.T &&
		p >= 0 && p < d.P &&
		z >= 0 && z < d.Z &&
		c >= 0 && c < d.C
}

// checkFrame returns a descriptive error for the first out-of-range frame
// coordinate.
func (d Dimensions) checkFrame(t, p, z, c int) error {
	coords := [4]int{t, p, z, c}
	limits := [4]int{d.T, d.P, d.Z, d.C}
	for i, v := range coords {
		if v < 0 || v >= limits[i] {
			return fmt.Errorf("%s index %d out of bounds (max: %d)", AxisNames[i], v, limits[i]-1)
		}
	}
	return nil
}

// Index returns the offset of a voxel in Data. The coordinates are not
// checked; use At or Set for bounds-checked access.
func (v *Volume) Index(t, p, z, c, y, x int) int {
	d := v.Metadata.Dimensions
	return (d.FrameIndex(t, p, z, c)*d.Y+y)*d.X + x
}

// At returns the voxel at the given coordinates.
func (v *Volume) At(t, p, z, c, y, x int) (float32, error) {
	if !v.Metadata.Dimensions.Contains(t, p, z, c, y, x) {
		return 0, fmt.Errorf("voxel (%d,%d,%d,%d,%d,%d) outside %s", t, p, z, c, y, x, v.Metadata.Dimensions)
	}
	return v.Data[v.Index(t, p, z, c, y, x)], nil
}

// Set stores a voxel at the given coordinates.
func (v *Volume) Set(t, p, z, c, y, x int, value float32) error {
	if !v.Metadata.Dimensions.Contains(t, p, z, c, y, x) {
		return fmt.Errorf("voxel (%d,%d,%d,%d,%d,%d) outside %s", t, p, z, c, y, x, v.Metadata.Dimensions)
	}
	v.Data[v.Index(t, p, z, c, y, x)] = value
	return nil
}

// Frame returns the Y×X plane at (t, p, z, c). The returned slice aliases Data.
func (v *Volume) Frame(t, p, z, c int) ([]float32, error) {
	d := v.Metadata.Dimensions
	if err := d.checkFrame(t, p, z, c); err != nil {
		return nil, err
	}
	n := d.PlaneLen()
	start := d.FrameIndex(t, p, z, c) * n
	return v.Data[start : start+n : start+n], nil
}

// SetFrame copies plane into the frame at (t, p, z, c).
func (v *Volume) SetFrame(t, p, z, c int, plane []float32) error {
	dst, err := v.Frame(t, p, z, c)
	if err != nil {
		return err
	}
	if len(plane) != len(dst) {
		return fmt.Errorf("frame has %d values, expected %d (%dx%d)", len(plane), len(dst), v.Metadata.Dimensions.Y, v.Metadata.Dimensions.X)
	}
	copy(dst, plane)
	return nil
}

// MemoryUsage returns the payload size of the volume in bytes.
func (v *Volume) MemoryUsage() uint64 {
	return uint64(len(v.Data)) * BytesPerVoxel
}
