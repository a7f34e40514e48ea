package inspect

import (
	"fmt"
	"io"
)

// LoadAndInspect6DFile inspects the dataset at path and prints its layout,
// channels and first-frame statistics to w.
func LoadAndInspect6DFile(w io.Writer, path string, opts ...Option) error {
	fmt.Fprintf(w, "Loading 6D file: %s\n", path)

	r, err := Inspect(path, opts...)
	if err != nil {
		return err
	}
	return WriteReport(w, r)
}

// WriteReport prints r in the layout of LoadAndInspect6DFile.
func WriteReport(w io.Writer, r Report) error {
	pw := &printer{w: w}
	pw.printf("Dimensions (T×P×Z×C×Y×X): %s\n", r.Dimensions)
	pw.printf("Total elements: %d\n", r.TotalElements())
	pw.printf("Memory usage: %d MB\n", r.PayloadBytes/(1<<20))
	pw.printf("Pixel size: %.3f μm\n", r.PixelSizeUM)
	pw.printf("Time interval: %.1f s\n", r.TimeIntervalS)
	pw.printf("Data type: %s\n", r.DType)

	pw.printf("\nChannels:\n")
	for _, c := range r.Channels {
		pw.printf("  %d: %s (min=%.1f, max=%.1f, mean=%.1f, std=%.1f)\n",
			c.Index, c.Name, c.Min, c.Max, c.Mean, c.StdDev)
	}

	pw.printf("\nFrame statistics (T=0, P=0, Z=0):\n")
	for _, f := range r.Frames {
		pw.printf("  Channel %d: min=%.1f, max=%.1f, mean=%.1f, median=%.1f, std=%.1f, saturated=%d/%d (>= %.0f)\n",
			f.C, f.Min, f.Max, f.Mean, f.Median, f.StdDev, f.Saturated, f.Pixels, f.Threshold)
	}
	return pw.err
}

// Validate6DFile validates the dataset at path and prints a short summary.
func Validate6DFile(w io.Writer, path string) error {
	fmt.Fprintf(w, "Validating 6D file: %s\n", path)

	s, err := Validate(path)
	if err != nil {
		return err
	}
	pw := &printer{w: w}
	pw.printf("✓ File validation successful\n")
	pw.printf("Dimensions: %s\n", s.Dimensions)
	pw.printf("Format version: %d\n", s.FormatVersion)
	pw.printf("Data type: %s\n", s.DType)
	return pw.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
