package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"tpzcyx/pkg/pattern"
)

// PatternEntry is one channel of a pattern file. Only the parameters of the
// selected kind are read; the others are ignored.
type PatternEntry struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	Value         float64  `yaml:"value,omitempty"`
	Min           float64  `yaml:"min,omitempty"`
	Max           float64  `yaml:"max,omitempty"`
	Axis          string   `yaml:"axis,omitempty"`
	Count         int      `yaml:"count,omitempty"`
	Sigma         float64  `yaml:"sigma,omitempty"`
	Amplitude     float64  `yaml:"amplitude,omitempty"`
	Spacing       float64  `yaml:"spacing,omitempty"`
	Velocity      Velocity `yaml:"velocity,omitempty"`
	Frequency     float64  `yaml:"frequency,omitempty"`
	Phase         float64  `yaml:"phase,omitempty"`
	PhasePerFrame float64  `yaml:"phasePerFrame,omitempty"`
	Seed          *uint64  `yaml:"seed,omitempty"`
}

// Velocity is the per-frame displacement of moving spots
type Velocity struct {
	Y float64 `yaml:"y"`
	X float64 `yaml:"x"`
}

// Spec converts the entry into a validated pattern specification
func (e PatternEntry) Spec() (pattern.Spec, error) {
	kind, err := pattern.ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}

	var spec pattern.Spec
	switch kind {
	case pattern.KindUniform:
		spec = pattern.Uniform{Value: e.Value}
	case pattern.KindGradient:
		axis, err := pattern.ParseAxis(e.Axis)
		if err != nil {
			return nil, err
		}
		spec = pattern.Gradient{Min: e.Min, Max: e.Max, Axis: axis}
	case pattern.KindGaussianSpots:
		spec = pattern.GaussianSpots{Count: e.Count, Sigma: e.Sigma, Amplitude: e.Amplitude, Seed: e.Seed}
	case pattern.KindCircles:
		spec = pattern.Circles{Spacing: e.Spacing, Amplitude: e.Amplitude}
	case pattern.KindMovingSpots:
		spec = pattern.MovingSpots{
			Count:     e.Count,
			Sigma:     e.Sigma,
			Amplitude: e.Amplitude,
			Velocity:  pattern.Velocity{Y: e.Velocity.Y, X: e.Velocity.X},
			Seed:      e.Seed,
		}
	case pattern.KindSineWave:
		spec = pattern.SineWave{Frequency: e.Frequency, Phase: e.Phase, Amplitude: e.Amplitude, PhasePerFrame: e.PhasePerFrame}
	case pattern.KindNoise:
		spec = pattern.Noise{Min: e.Min, Max: e.Max, Seed: e.Seed}
	default:
		return nil, fmt.Errorf("pattern kind %s has no file mapping", kind)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ParsePatterns decodes a YAML list of pattern entries. Unknown keys are
// rejected so that misspelled parameters do not silently fall back to zero.
func ParsePatterns(data []byte) ([]PatternEntry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var entries []PatternEntry
	if err := dec.Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("pattern file is empty")
		}
		return nil, fmt.Errorf("error parsing pattern file: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("pattern file lists no channels")
	}
	return entries, nil
}

// LoadPatterns reads a pattern file and returns one channel name and one
// validated specification per entry. Unnamed entries are called ChannelN.
func LoadPatterns(path string) ([]string, []pattern.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading pattern file: %w", err)
	}
	entries, err := ParsePatterns(data)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, len(entries))
	specs := make([]pattern.Spec, len(entries))
	for i, e := range entries {
		spec, err := e.Spec()
		if err != nil {
			return nil, nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		specs[i] = spec
		names[i] = e.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("Channel%d", i+1)
		}
	}
	return names, specs, nil
}
