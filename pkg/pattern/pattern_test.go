package pattern

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpzcyx/pkg/format"
)

var testDims = format.NewDimensions(3, 1, 4, 2, 16, 32)

// TestValidateRejectsBadParameters verifies every invalid parameter class
func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name  string
		spec  Spec
		param string
	}{
		{"nan uniform", Uniform{Value: math.NaN()}, "value"},
		{"gradient min above max", Gradient{Min: 10, Max: 1}, "min"},
		{"gradient axis", Gradient{Min: 0, Max: 1, Axis: Axis(7)}, "axis"},
		{"zero sigma", GaussianSpots{Count: 3, Sigma: 0, Amplitude: 1}, "sigma"},
		{"negative sigma", MovingSpots{Count: 3, Sigma: -2, Amplitude: 1}, "sigma"},
		{"negative count", GaussianSpots{Count: -1, Sigma: 1, Amplitude: 1}, "count"},
		{"too many spots", MovingSpots{Count: MaxSpots + 1, Sigma: 1, Amplitude: 1}, "count"},
		{"infinite velocity", MovingSpots{Count: 1, Sigma: 1, Velocity: Velocity{X: math.Inf(1)}}, "velocity.x"},
		{"zero spacing", Circles{Spacing: 0, Amplitude: 1}, "spacing"},
		{"nan frequency", SineWave{Frequency: math.NaN()}, "frequency"},
		{"noise min above max", Noise{Min: 800, Max: 100}, "min"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			require.ErrorIs(t, err, ErrInvalidParameter)
			var pe *ParameterError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.spec.Kind(), pe.Kind)
			assert.Equal(t, tc.param, pe.Param)

			_, err = NewSampler(tc.spec, testDims, 0)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

// TestValidateAcceptsBoundaries verifies the edges of the valid ranges
func TestValidateAcceptsBoundaries(t *testing.T) {
	for _, spec := range []Spec{
		Uniform{Value: -5},
		Gradient{Min: 3, Max: 3, Axis: AxisZ},
		GaussianSpots{Count: 0, Sigma: 1},
		MovingSpots{Count: MaxSpots, Sigma: 0.1},
		Circles{Spacing: 0.5},
		SineWave{},
		Noise{Min: 1, Max: 1},
	} {
		assert.NoError(t, spec.Validate(), "%s", spec.Kind())
	}
}

// TestKindNames verifies that every kind round-trips through its name
func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	k, err := ParseKind("Gaussian-Spots")
	require.NoError(t, err)
	assert.Equal(t, KindGaussianSpots, k)

	_, err = ParseKind("checkerboard")
	assert.Error(t, err)

	a, err := ParseAxis("Y")
	require.NoError(t, err)
	assert.Equal(t, AxisY, a)
	_, err = ParseAxis("w")
	assert.Error(t, err)
}

// TestUniform verifies the constant pattern
func TestUniform(t *testing.T) {
	v, err := Intensity(Uniform{Value: 42}, Coord{T: 2, Z: 3, C: 1, Y: 15, X: 31}, testDims)
	require.NoError(t, err)
	assert.Equal(t, float32(42), v)
}

// TestGradient verifies the end points and the independence of other axes
func TestGradient(t *testing.T) {
	g := Gradient{Min: 100, Max: 400, Axis: AxisX}
	s, err := NewSampler(g, testDims, 0)
	require.NoError(t, err)

	assert.Equal(t, float32(100), s.At(0, 0, 0, 0, 0))
	assert.Equal(t, float32(400), s.At(0, 0, 0, 0, 31))
	assert.InDelta(t, 100+300*10.0/31, s.At(0, 0, 0, 0, 10), 1e-3)
	assert.Equal(t, s.At(0, 0, 0, 0, 7), s.At(2, 0, 3, 15, 7), "only x affects the value")

	s, err = NewSampler(Gradient{Min: 0, Max: 3, Axis: AxisZ}, testDims, 0)
	require.NoError(t, err)
	for z := 0; z < testDims.Z; z++ {
		assert.InDelta(t, float64(z), s.At(0, 0, z, 5, 5), 1e-6)
	}

	single := format.NewDimensions(1, 1, 1, 1, 1, 1)
	v, err := Intensity(Gradient{Min: 5, Max: 9, Axis: AxisY}, Coord{}, single)
	require.NoError(t, err)
	assert.Equal(t, float32(5), v)
}

// TestGaussianSpotsPinned verifies seeded determinism and per-channel pinning
func TestGaussianSpotsPinned(t *testing.T) {
	spec := GaussianSpots{Count: 4, Sigma: 2, Amplitude: 500, Seed: Seed(7)}

	a, err := NewSampler(spec, testDims, 0)
	require.NoError(t, err)
	b, err := NewSampler(spec, testDims, 0)
	require.NoError(t, err)

	pa := make([]float32, testDims.PlaneLen())
	pb := make([]float32, testDims.PlaneLen())
	FillPlane(a, 0, 0, 0, pa, testDims.X)
	FillPlane(b, 0, 0, 0, pb, testDims.X)
	assert.Equal(t, pa, pb, "same seed gives the same centers")

	FillPlane(a, 2, 0, 3, pb, testDims.X)
	assert.Equal(t, pa, pb, "centers are shared by every slice of the channel")

	var peak float32
	for _, v := range pa {
		assert.GreaterOrEqual(t, v, float32(0))
		peak = max(peak, v)
	}
	assert.Greater(t, peak, float32(250))

	other, err := NewSampler(GaussianSpots{Count: 4, Sigma: 2, Amplitude: 500, Seed: Seed(8)}, testDims, 0)
	require.NoError(t, err)
	FillPlane(other, 0, 0, 0, pb, testDims.X)
	assert.NotEqual(t, pa, pb)
}

// TestGaussianSpotsZeroCount verifies that no spots give a dark plane
func TestGaussianSpotsZeroCount(t *testing.T) {
	v, err := Intensity(GaussianSpots{Count: 0, Sigma: 3, Amplitude: 100}, Coord{Y: 8, X: 8}, testDims)
	require.NoError(t, err)
	assert.Zero(t, v)
}

// TestSingleSpotProfile verifies the Gaussian profile around a known center
func TestSingleSpotProfile(t *testing.T) {
	s := &spotSampler{centers: []point{{y: 5, x: 5}}, sigma: 2, amplitude: 100}
	assert.InDelta(t, 100, s.At(0, 0, 0, 5, 5), 1e-4)
	assert.InDelta(t, 100*math.Exp(-4.0/8), s.At(0, 0, 0, 5, 7), 1e-4)
	assert.InDelta(t, s.At(0, 0, 0, 3, 5), s.At(0, 0, 0, 5, 7), 1e-6)
}

// TestMovingSpotsTranslateAndClamp verifies linear motion clamped to the plane
func TestMovingSpotsTranslateAndClamp(t *testing.T) {
	dims := format.NewDimensions(50, 1, 1, 1, 16, 32)
	spec := MovingSpots{Count: 1, Sigma: 1, Amplitude: 100, Velocity: Velocity{Y: 0, X: 1}, Seed: Seed(3)}

	s, err := NewSampler(spec, dims, 0)
	require.NoError(t, err)
	m := s.(*movingSampler)
	start := m.centers[0]

	m.shift(2)
	assert.InDelta(t, math.Min(start.x+2, float64(dims.X-1)), m.shifted[0].x, 1e-9)
	assert.InDelta(t, start.y, m.shifted[0].y, 1e-9)

	m.shift(49)
	assert.Equal(t, float64(dims.X-1), m.shifted[0].x, "centers clamp at the last column")

	still, err := NewSampler(MovingSpots{Count: 1, Sigma: 1, Amplitude: 100, Seed: Seed(3)}, dims, 0)
	require.NoError(t, err)
	gauss, err := NewSampler(GaussianSpots{Count: 1, Sigma: 1, Amplitude: 100, Seed: Seed(3)}, dims, 0)
	require.NoError(t, err)
	assert.Equal(t, gauss.At(0, 0, 0, 4, 4), still.At(5, 0, 0, 4, 4), "zero velocity matches GaussianSpots")
}

// TestCircles verifies the ring band around the plane center
func TestCircles(t *testing.T) {
	dims := format.NewDimensions(1, 1, 1, 1, 64, 64)
	s, err := NewSampler(Circles{Spacing: 10, Amplitude: 200}, dims, 0)
	require.NoError(t, err)

	assert.Equal(t, float32(200), s.At(0, 0, 0, 32, 32), "r=0 is inside the band")
	assert.Equal(t, float32(200), s.At(0, 0, 0, 32, 36), "r=4")
	assert.Equal(t, float32(0), s.At(0, 0, 0, 32, 39), "r=7")
	assert.Equal(t, float32(200), s.At(0, 0, 0, 44, 32), "r=12")
}

// TestSineWave verifies the formula including the per-frame phase
func TestSineWave(t *testing.T) {
	spec := SineWave{Frequency: 2, Phase: 0.5, Amplitude: 10, PhasePerFrame: 0.25}
	s, err := NewSampler(spec, testDims, 0)
	require.NoError(t, err)

	for _, x := range []int{0, 5, 31} {
		want := 10 * math.Sin(2*math.Pi*2*float64(x)/32+0.5+0.25*2)
		assert.InDelta(t, want, s.At(2, 0, 1, 7, x), 1e-4)
	}
	assert.Equal(t, s.At(0, 0, 0, 0, 3), s.At(0, 0, 3, 15, 3))
}

// TestNoiseBoundsAndSeed verifies the range and the seeded determinism of noise
func TestNoiseBoundsAndSeed(t *testing.T) {
	spec := Noise{Min: 100, Max: 800, Seed: Seed(42)}
	a, err := NewSampler(spec, testDims, 0)
	require.NoError(t, err)
	b, err := NewSampler(spec, testDims, 0)
	require.NoError(t, err)

	var sum float64
	plane := make([]float32, testDims.PlaneLen())
	FillPlane(a, 1, 0, 2, plane, testDims.X)
	for i, v := range plane {
		require.GreaterOrEqual(t, v, float32(100))
		require.LessOrEqual(t, v, float32(800))
		require.Equal(t, v, b.At(1, 0, 2, i/testDims.X, i%testDims.X))
		sum += float64(v)
	}
	mean := sum / float64(len(plane))
	assert.InDelta(t, 450, mean, 60)

	// Evaluation order does not matter.
	v, err := Intensity(spec, Coord{T: 1, Z: 2, Y: 3, X: 4}, testDims)
	require.NoError(t, err)
	assert.Equal(t, plane[3*testDims.X+4], v)

	assert.NotEqual(t, a.At(0, 0, 0, 0, 0), a.At(0, 0, 0, 0, 1))
}

// TestIntensityRejectsOutOfRange verifies the bounds check of the single-voxel form
func TestIntensityRejectsOutOfRange(t *testing.T) {
	_, err := Intensity(Uniform{Value: 1}, Coord{X: testDims.X}, testDims)
	assert.Error(t, err)

	_, err = Intensity(Uniform{Value: 1}, Coord{}, format.NewDimensions(1, 1, 0, 1, 1, 1))
	assert.ErrorIs(t, err, format.ErrInvalidDimension)

	_, err = NewSampler(nil, testDims, 0)
	assert.Error(t, err)
}

// TestDefaultPresets verifies that every kind has a valid preset
func TestDefaultPresets(t *testing.T) {
	for _, k := range Kinds() {
		spec, err := Default(k, Seed(3))
		require.NoError(t, err, k.String())
		assert.Equal(t, k, spec.Kind())
		assert.NoError(t, spec.Validate(), k.String())
		_, err = NewSampler(spec, testDims, 0)
		assert.NoError(t, err, k.String())
	}

	_, err := Default(Kind(99), nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func BenchmarkGaussianSpotsPlane(b *testing.B) {
	dims := format.NewDimensions(1, 1, 1, 1, 256, 256)
	s, err := NewSampler(GaussianSpots{Count: 20, Sigma: 4, Amplitude: 500, Seed: Seed(1)}, dims, 0)
	if err != nil {
		b.Fatalf("sampler: %v", err)
	}
	plane := make([]float32, dims.PlaneLen())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FillPlane(s, 0, 0, 0, plane, dims.X)
	}
}

func BenchmarkNoisePlane(b *testing.B) {
	dims := format.NewDimensions(1, 1, 1, 1, 256, 256)
	s, err := NewSampler(Noise{Min: 0, Max: 1, Seed: Seed(1)}, dims, 0)
	if err != nil {
		b.Fatalf("sampler: %v", err)
	}
	plane := make([]float32, dims.PlaneLen())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FillPlane(s, 0, 0, 0, plane, dims.X)
	}
}
