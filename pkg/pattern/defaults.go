package pattern

// Default returns the preset parameters of kind k used when a pattern is
// requested by kind alone. Random kinds take seed, which may be nil.
func Default(k Kind, seed *uint64) (Spec, error) {
	switch k {
	case KindUniform:
		return Uniform{Value: 150}, nil
	case KindGradient:
		return Gradient{Min: 0, Max: 1000, Axis: AxisX}, nil
	case KindGaussianSpots:
		return GaussianSpots{Count: 3, Sigma: 5, Amplitude: 800, Seed: seed}, nil
	case KindCircles:
		return Circles{Spacing: 10, Amplitude: 500}, nil
	case KindMovingSpots:
		return MovingSpots{
			Count:     2,
			Sigma:     5,
			Amplitude: 800,
			Velocity:  Velocity{Y: 1, X: 1},
			Seed:      seed,
		}, nil
	case KindSineWave:
		return SineWave{Frequency: 2, Amplitude: 200}, nil
	case KindNoise:
		return Noise{Min: 50, Max: 200, Seed: seed}, nil
	}
	return nil, paramErr(k, "kind", "no preset for %s", k)
}
