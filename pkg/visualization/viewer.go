// Package visualization renders planes of a loaded TPZCYX volume as 16-bit
// grayscale images for quick visual checks of generated data.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"tpzcyx/pkg/format"
)

// Window is a fixed intensity range mapped onto [0, 65535].
type Window struct {
	Min float64
	Max float64
}

// Viewer extracts images from a volume. Without a window every image is
// stretched between its own minimum and maximum.
type Viewer struct {
	// volume holds the loaded dataset
	volume *format.Volume

	// window, when set, replaces per-image auto-contrast
	window *Window
}

// NewViewer creates a new viewer over a loaded volume
func NewViewer(volume *format.Volume) *Viewer {
	return &Viewer{volume: volume}
}

// SetWindow fixes the intensity range used for every extracted image
func (v *Viewer) SetWindow(min, max float64) error {
	if !(min < max) {
		return fmt.Errorf("window minimum %g must be below maximum %g", min, max)
	}
	v.window = &Window{Min: min, Max: max}
	return nil
}

// ExtractFrame renders the Y×X plane at (t, p, z, c)
func (v *Viewer) ExtractFrame(t, p, z, c int) (*image.Gray16, error) {
	plane, err := v.volume.Frame(t, p, z, c)
	if err != nil {
		return nil, err
	}
	d := v.volume.Dimensions()
	return v.render(plane, d.X, d.Y), nil
}

// ExtractSlice renders an orthogonal section through the Z stack of (t, p, c).
// Axis "z" gives the XY plane at z=position, "y" the XZ plane at y=position and
// "x" the ZY plane at x=position.
func (v *Viewer) ExtractSlice(axis string, t, p, c, position int) (*image.Gray16, error) {
	d := v.volume.Dimensions()
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var values []float32
	var w, h int

	switch strings.ToLower(axis) {
	case "z":
		return v.ExtractFrame(t, p, position, c)

	case "y":
		if position >= d.Y {
			return nil, fmt.Errorf("position %d exceeds height %d", position, d.Y)
		}
		w, h = d.X, d.Z
		values = make([]float32, 0, w*h)
		for z := 0; z < d.Z; z++ {
			plane, err := v.volume.Frame(t, p, z, c)
			if err != nil {
				return nil, err
			}
			values = append(values, plane[position*d.X:(position+1)*d.X]...)
		}

	case "x":
		if position >= d.X {
			return nil, fmt.Errorf("position %d exceeds width %d", position, d.X)
		}
		w, h = d.Z, d.Y
		values = make([]float32, w*h)
		for z := 0; z < d.Z; z++ {
			plane, err := v.volume.Frame(t, p, z, c)
			if err != nil {
				return nil, err
			}
			for y := 0; y < d.Y; y++ {
				values[y*w+z] = plane[y*d.X+position]
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return v.render(values, w, h), nil
}

// render maps values onto a w×h Gray16 image
func (v *Viewer) render(values []float32, w, h int) *image.Gray16 {
	lo, hi := v.bounds(values)
	scale := 0.0
	if hi > lo {
		scale = 65535 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for i, x := range values {
		value := uint16(math.Max(0, math.Min(65535, (float64(x)-lo)*scale)))
		img.SetGray16(i%w, i/w, color.Gray16{Y: value})
	}
	return img
}

func (v *Viewer) bounds(values []float32) (lo, hi float64) {
	if v.window != nil {
		return v.window.Min, v.window.Max
	}
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range values {
		lo = math.Min(lo, float64(x))
		hi = math.Max(hi, float64(x))
	}
	return lo, hi
}

// SaveFrame writes img as PNG, or as JPEG when filename ends in .jpg or .jpeg
func (v *Viewer) SaveFrame(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// SaveFrameSequence writes every frame of (p, c) along axis "t" (at z=0) or
// "z" (at t=0) into outputDir as frame_<axis>_NNN.png
func (v *Viewer) SaveFrameSequence(axis string, p, c int, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	d := v.volume.Dimensions()
	var count int
	switch axis {
	case "t", "T":
		count = d.T
	case "z", "Z":
		count = d.Z
	default:
		return fmt.Errorf("invalid axis: %s (must be t or z)", axis)
	}

	for pos := 0; pos < count; pos++ {
		t, z := pos, 0
		if axis == "z" || axis == "Z" {
			t, z = 0, pos
		}
		img, err := v.ExtractFrame(t, p, z, c)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%s_%03d.png", strings.ToLower(axis), pos))
		if err := v.SaveFrame(img, filename); err != nil {
			return err
		}
	}

	return nil
}
