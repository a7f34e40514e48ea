package generator

import (
	"tpzcyx/pkg/format"
	"tpzcyx/pkg/pattern"
)

// MockPatterns returns the default pattern of each of c channels. Channels
// cycle through gradient, Gaussian spots, circles, sine wave, moving spots
// and noise; random kinds are seeded from seed plus the channel number, so
// equal arguments give equal patterns.
func MockPatterns(c, h, w int, seed uint64) []pattern.Spec {
	size := float64(min(h, w))
	sigma := max(1.5, size/16)
	spacing := max(4, size/8)

	specs := make([]pattern.Spec, c)
	for i := range specs {
		s := seed + uint64(i)
		switch i % 6 {
		case 0:
			specs[i] = pattern.Gradient{Min: 100, Max: 1000, Axis: pattern.AxisX}
		case 1:
			specs[i] = pattern.GaussianSpots{Count: 5, Sigma: sigma, Amplitude: 800, Seed: pattern.Seed(s)}
		case 2:
			specs[i] = pattern.Circles{Spacing: spacing, Amplitude: 600}
		case 3:
			specs[i] = pattern.SineWave{Frequency: 3, Amplitude: 400, PhasePerFrame: 0.3}
		case 4:
			specs[i] = pattern.MovingSpots{
				Count:     3,
				Sigma:     sigma,
				Amplitude: 800,
				Velocity:  pattern.Velocity{Y: 1, X: 2},
				Seed:      pattern.Seed(s),
			}
		case 5:
			specs[i] = pattern.Noise{Min: 100, Max: 800, Seed: pattern.Seed(s)}
		}
	}
	return specs
}

// GenerateMock6D writes a t×p×z×c×h×w dataset with the mixed default
// patterns of MockPatterns.
func GenerateMock6D(path string, t, p, z, c, h, w int, opts ...Option) error {
	o := newOptions(opts)
	dims := format.NewDimensions(t, p, z, c, h, w)
	if err := dims.Validate(); err != nil {
		return err
	}
	// MockPatterns allocates per channel.
	if _, err := format.Budget(dims); err != nil {
		return err
	}
	return o.generate(path, dims, channelSpecs(nil, MockPatterns(c, h, w, o.seed)))
}

// GenerateSmallTestFile writes the 3×1×2×2×32×32 fixture used by tests.
func GenerateSmallTestFile(path string, opts ...Option) error {
	return GenerateMock6D(path, 3, 1, 2, 2, 32, 32, opts...)
}

// GenerateMinimal writes a 2×1×1×2×8×8 dataset whose channels Test1 and
// Test2 hold the constants 50 and 150.
func GenerateMinimal(path string, opts ...Option) error {
	o := newOptions(opts)
	dims := format.NewDimensions(2, 1, 1, 2, 8, 8)
	return o.generate(path, dims, []ChannelSpec{
		{Name: "Test1", Pattern: pattern.Uniform{Value: 50}},
		{Name: "Test2", Pattern: pattern.Uniform{Value: 150}},
	})
}

// GenerateRealisticDataset writes a 10×1×5×3×256×256 time-lapse with a
// phase-contrast-like background and two fluorescent channels.
func GenerateRealisticDataset(path string, opts ...Option) error {
	o := newOptions(opts)
	dims := format.NewDimensions(10, 1, 5, 3, 256, 256)
	channels := []ChannelSpec{
		{Name: "Phase", Pattern: pattern.Gradient{Min: 200, Max: 1200, Axis: pattern.AxisY}},
		{Name: "GFP", Pattern: pattern.MovingSpots{
			Count:     12,
			Sigma:     6,
			Amplitude: 900,
			Velocity:  pattern.Velocity{Y: 0.5, X: 1.5},
			Seed:      pattern.Seed(o.seed + 1),
		}},
		{Name: "mCherry", Pattern: pattern.GaussianSpots{Count: 20, Sigma: 4, Amplitude: 700, Seed: pattern.Seed(o.seed + 2)}},
	}
	return o.generate(path, dims, channels)
}

// GenerateCustomPattern6D writes a dataset with one channel per entry of
// patterns.
func GenerateCustomPattern6D(path string, t, p, z, h, w int, patterns []pattern.Spec, opts ...Option) error {
	o := newOptions(opts)
	dims := format.NewDimensions(t, p, z, len(patterns), h, w)
	return o.generate(path, dims, channelSpecs(o.channelNames, patterns))
}

// Generate2DNoise writes a single w×h plane of uniform noise in [lo, hi].
func Generate2DNoise(path string, w, h int, lo, hi float64, opts ...Option) error {
	o := newOptions(opts)
	dims := format.NewDimensions(1, 1, 1, 1, h, w)
	return o.generate(path, dims, []ChannelSpec{
		{Name: "Noise", Pattern: pattern.Noise{Min: lo, Max: hi, Seed: pattern.Seed(o.seed)}},
	})
}

func channelSpecs(names []string, patterns []pattern.Spec) []ChannelSpec {
	channels := make([]ChannelSpec, len(patterns))
	for i, p := range patterns {
		channels[i].Pattern = p
		if i < len(names) {
			channels[i].Name = names[i]
		}
	}
	return channels
}
