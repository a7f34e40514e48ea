// Package inspect validates TPZCYX datasets and computes summary statistics
// over their payload. Every function is read-only.
package inspect

import (
	"fmt"

	"go.uber.org/zap"

	"tpzcyx/pkg/config"
	"tpzcyx/pkg/format"
)

// Summary is what can be learnt about a dataset without reading its payload.
type Summary struct {
	MetaPath        string
	DataPath        string
	Dimensions      format.Dimensions
	PayloadBytes    uint64
	DescriptorBytes uint64
	ChannelNames    []string
	PixelSizeUM     float64
	TimeIntervalS   float64
	DType           string
	FormatVersion   int
}

// TotalElements returns the number of voxels.
func (s Summary) TotalElements() uint64 {
	return s.PayloadBytes / format.BytesPerVoxel
}

// Report extends a Summary with payload statistics.
type Report struct {
	Summary

	// Channels holds one entry per channel over the whole payload.
	Channels []ChannelStats

	// Frames holds the statistics of frame (0, 0, 0, c) for every channel c.
	Frames []FrameStats
}

// Option configures Inspect.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	threshold float64
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithThreshold sets the saturation threshold of the frame statistics.
func WithThreshold(threshold float64) Option {
	return func(o *options) { o.threshold = threshold }
}

// WithConfig applies the inspect section of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.threshold = cfg.Inspect.SaturationThreshold
		}
	}
}

// Validate decodes the descriptor and checks the payload size without
// reading the payload.
func Validate(path string) (Summary, error) {
	h, err := format.Stat(path)
	if err != nil {
		return Summary{}, err
	}
	m := h.Metadata
	return Summary{
		MetaPath:        h.MetaPath,
		DataPath:        h.DataPath,
		Dimensions:      m.Dimensions,
		PayloadBytes:    h.PayloadBytes,
		DescriptorBytes: h.MetaBytes,
		ChannelNames:    m.ChannelNames,
		PixelSizeUM:     m.PixelSizeUM,
		TimeIntervalS:   m.TimeIntervalS,
		DType:           m.DType,
		FormatVersion:   m.FormatVersion,
	}, nil
}

// IsValid reports whether Validate succeeds.
func IsValid(path string) bool {
	_, err := Validate(path)
	return err == nil
}

// Inspect validates the dataset and computes per-channel and first-frame
// statistics. The payload is streamed one plane at a time; datasets over the
// memory budget are still rejected.
func Inspect(path string, opts ...Option) (Report, error) {
	o := &options{logger: zap.NewNop(), threshold: DefaultSaturationThreshold}
	for _, opt := range opts {
		opt(o)
	}

	s, err := Validate(path)
	if err != nil {
		return Report{}, err
	}
	if err := format.CheckBudget(s.PayloadBytes); err != nil {
		return Report{}, err
	}

	d := s.Dimensions
	r := Report{
		Summary:  s,
		Channels: make([]ChannelStats, d.C),
		Frames:   make([]FrameStats, d.C),
	}

	acc := make([]channelAccumulator, d.C)
	values := make([]float64, 0, d.PlaneLen())
	err = format.StreamFrames(path, func(t, p, z, c int, plane []float32) error {
		values = toFloat64(values, plane)
		acc[c].add(values)
		if t == 0 && p == 0 && z == 0 {
			r.Frames[c] = frameStats(values, o.threshold)
			r.Frames[c].C = c
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	for c := range acc {
		r.Channels[c] = acc[c].stats(c, s.ChannelNames[c])
	}

	o.logger.Debug("dataset inspected",
		zap.String("path", s.MetaPath),
		zap.Stringer("dimensions", d),
		zap.Float64("threshold", o.threshold))
	return r, nil
}

// FrameStatsAt reads the single frame (t, p, z, c) and computes its
// statistics. Only that frame is read from the payload.
func FrameStatsAt(path string, t, p, z, c int, threshold float64) (FrameStats, error) {
	plane, err := format.ReadFrame(path, t, p, z, c)
	if err != nil {
		return FrameStats{}, fmt.Errorf("reading frame: %w", err)
	}
	s := ComputeFrameStats(plane, threshold)
	s.T, s.P, s.Z, s.C = t, p, z, c
	return s, nil
}
