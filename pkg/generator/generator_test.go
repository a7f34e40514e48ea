package generator

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tpzcyx/pkg/config"
	"tpzcyx/pkg/format"
	"tpzcyx/pkg/pattern"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func assertNoFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestGenerateSmallTestFile verifies the fixture size and its descriptor
func TestGenerateSmallTestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t")
	require.NoError(t, GenerateSmallTestFile(path))

	fi, err := os.Stat(path + ".data")
	require.NoError(t, err)
	assert.Equal(t, int64(49152), fi.Size())

	h, err := format.Stat(path + ".meta")
	require.NoError(t, err)
	assert.Equal(t, format.NewDimensions(3, 1, 2, 2, 32, 32), h.Metadata.Dimensions)
	assert.Equal(t, []string{"Channel1", "Channel2"}, h.Metadata.ChannelNames)
	assert.Equal(t, format.DefaultPixelSizeUM, h.Metadata.PixelSizeUM)
}

// TestGenerateMockValidates verifies that mock datasets of various shapes read back
func TestGenerateMockValidates(t *testing.T) {
	shapes := []format.Dimensions{
		format.NewDimensions(1, 1, 1, 1, 1, 1),
		format.NewDimensions(2, 2, 3, 6, 8, 12),
		format.NewDimensions(1, 1, 1, 7, 16, 4),
	}
	for _, d := range shapes {
		t.Run(d.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mock")
			require.NoError(t, GenerateMock6D(path, d.T, d.P, d.Z, d.C, d.Y, d.X))

			v, err := format.Load(path)
			require.NoError(t, err)
			assert.Equal(t, d, v.Dimensions())
		})
	}
}

// TestGenerateZeroDimension verifies that no file is written for an empty axis
func TestGenerateZeroDimension(t *testing.T) {
	for axis := 0; axis < 6; axis++ {
		shape := [6]int{2, 1, 2, 2, 8, 8}
		shape[axis] = 0
		dir := t.TempDir()
		err := GenerateMock6D(filepath.Join(dir, "zero"), shape[0], shape[1], shape[2], shape[3], shape[4], shape[5])
		require.ErrorIs(t, err, format.ErrInvalidDimension, "axis %s", format.AxisNames[axis])
		assertNoFiles(t, dir)
	}

	dir := t.TempDir()
	err := GenerateCustomPattern6D(filepath.Join(dir, "none"), 1, 1, 1, 4, 4, nil)
	assert.ErrorIs(t, err, format.ErrInvalidDimension)
	assertNoFiles(t, dir)
}

// TestGenerateOverBudget verifies that oversized requests fail before any allocation
func TestGenerateOverBudget(t *testing.T) {
	dir := t.TempDir()
	err := GenerateMock6D(filepath.Join(dir, "huge"), 100, 10, 10, 4, 512, 512)
	require.ErrorIs(t, err, format.ErrMemoryLimitExceeded)
	assertNoFiles(t, dir)

	err = GenerateMock6D(filepath.Join(dir, "overflow"), 1<<40, 1<<40, 1, 1, 1, 1)
	assert.ErrorIs(t, err, format.ErrOverflow)
	assertNoFiles(t, dir)

	// The channel count alone is over budget; no per-channel state may be built.
	err = GenerateMock6D(filepath.Join(dir, "channels"), 1, 1, 1, 1<<40, 1, 1)
	assert.ErrorIs(t, err, format.ErrMemoryLimitExceeded)
	assertNoFiles(t, dir)
}

// TestGenerateInvalidPattern verifies that parameters are checked before any file is created
func TestGenerateInvalidPattern(t *testing.T) {
	dir := t.TempDir()
	patterns := []pattern.Spec{
		pattern.Uniform{Value: 1},
		pattern.GaussianSpots{Count: 3, Sigma: 0, Amplitude: 10},
	}
	err := GenerateCustomPattern6D(filepath.Join(dir, "bad"), 1, 1, 1, 8, 8, patterns)
	require.ErrorIs(t, err, pattern.ErrInvalidParameter)
	assertNoFiles(t, dir)

	err = Generate(filepath.Join(dir, "nil"), format.NewDimensions(1, 1, 1, 1, 4, 4), []ChannelSpec{{Name: "x"}})
	assert.Error(t, err)

	err = Generate(filepath.Join(dir, "count"), format.NewDimensions(1, 1, 1, 2, 4, 4), []ChannelSpec{{Pattern: pattern.Uniform{}}})
	assert.ErrorContains(t, err, "1 channel patterns given for 2 channels")
	assertNoFiles(t, dir)
}

// TestDeterministicPatterns verifies byte-identical output for repeated requests
func TestDeterministicPatterns(t *testing.T) {
	cases := map[string]pattern.Spec{
		"uniform":  pattern.Uniform{Value: 123.5},
		"gradient": pattern.Gradient{Min: 0, Max: 1000, Axis: pattern.AxisY},
		"noise":    pattern.Noise{Min: 100, Max: 800, Seed: pattern.Seed(9)},
		"spots":    pattern.GaussianSpots{Count: 6, Sigma: 2, Amplitude: 700, Seed: pattern.Seed(9)},
		"moving":   pattern.MovingSpots{Count: 2, Sigma: 2, Amplitude: 700, Velocity: pattern.Velocity{X: 3}, Seed: pattern.Seed(9)},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			a := filepath.Join(dir, "a")
			b := filepath.Join(dir, "b")
			specs := []pattern.Spec{spec}
			require.NoError(t, GenerateCustomPattern6D(a, 3, 1, 2, 16, 24, specs))
			require.NoError(t, GenerateCustomPattern6D(b, 3, 1, 2, 16, 24, specs))

			da, err := os.ReadFile(a + ".data")
			require.NoError(t, err)
			db, err := os.ReadFile(b + ".data")
			require.NoError(t, err)
			assert.True(t, bytes.Equal(da, db), "payloads differ")
		})
	}

	dir := t.TempDir()
	require.NoError(t, GenerateMock6D(filepath.Join(dir, "m1"), 2, 1, 1, 6, 16, 16, WithSeed(5)))
	require.NoError(t, GenerateMock6D(filepath.Join(dir, "m2"), 2, 1, 1, 6, 16, 16, WithSeed(5)))
	d1, err := os.ReadFile(filepath.Join(dir, "m1.data"))
	require.NoError(t, err)
	d2, err := os.ReadFile(filepath.Join(dir, "m2.data"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(d1, d2), "mock payloads differ")
}

// TestGenerateUniformValues verifies the payload content of a uniform channel
func TestGenerateUniformValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat")
	specs := []pattern.Spec{pattern.Uniform{Value: 50}, pattern.Uniform{Value: 150}}
	require.NoError(t, GenerateCustomPattern6D(path, 2, 1, 1, 8, 8, specs, WithChannelNames("Test1", "Test2")))

	v, err := format.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Test1", "Test2"}, v.Metadata.ChannelNames)

	f0, err := v.Frame(1, 0, 0, 0)
	require.NoError(t, err)
	f1, err := v.Frame(1, 0, 0, 1)
	require.NoError(t, err)
	for i := range f0 {
		require.Equal(t, float32(50), f0[i])
		require.Equal(t, float32(150), f1[i])
	}
}

// TestGenerate2DNoise verifies the noise range of the 2D fixture
func TestGenerate2DNoise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n")
	require.NoError(t, Generate2DNoise(path, 256, 256, 100, 800))

	v, err := format.Load(path)
	require.NoError(t, err)
	assert.Equal(t, format.NewDimensions(1, 1, 1, 1, 256, 256), v.Dimensions())
	for _, x := range v.Data {
		require.GreaterOrEqual(t, x, float32(100))
		require.LessOrEqual(t, x, float32(800))
	}

	err = Generate2DNoise(filepath.Join(t.TempDir(), "bad"), 4, 4, 800, 100)
	assert.ErrorIs(t, err, pattern.ErrInvalidParameter)
}

// TestGenerateRealisticDataset verifies the shape and channel names of the realistic fixture
func TestGenerateRealisticDataset(t *testing.T) {
	if testing.Short() {
		t.Skip("writes a 39 MiB payload")
	}
	path := filepath.Join(t.TempDir(), "realistic")
	require.NoError(t, GenerateRealisticDataset(path))

	h, err := format.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, format.NewDimensions(10, 1, 5, 3, 256, 256), h.Metadata.Dimensions)
	assert.Equal(t, []string{"Phase", "GFP", "mCherry"}, h.Metadata.ChannelNames)
	assert.Equal(t, uint64(10*5*3*256*256*4), h.PayloadBytes)
}

// TestGenerateOptions verifies descriptor fields set through options and configuration
func TestGenerateOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Generator.PixelSizeUM = 0.325
	cfg.Generator.TimeIntervalS = 30

	core, logs := observer.New(zap.DebugLevel)
	path := filepath.Join(t.TempDir(), "opts")
	dims := format.NewDimensions(1, 1, 1, 1, 4, 4)
	err := Generate(path, dims, []ChannelSpec{{Pattern: pattern.Uniform{Value: 1}}},
		WithConfig(cfg), WithLogger(zap.New(core)), WithChannelNames("DAPI"))
	require.NoError(t, err)

	m, err := format.ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, 0.325, m.PixelSizeUM)
	assert.Equal(t, 30.0, m.TimeIntervalS)
	assert.Equal(t, []string{"DAPI"}, m.ChannelNames)

	assert.Equal(t, 1, logs.FilterMessage("generating dataset").Len())
	assert.Equal(t, 1, logs.FilterMessage("dataset written").Len())

	err = Generate(path, dims, []ChannelSpec{{Pattern: pattern.Uniform{Value: 1}}}, WithPixelSize(0))
	assert.ErrorContains(t, err, "pixel_size_um")
}

// TestMockPatternsCycle verifies the kind order of the default patterns
func TestMockPatternsCycle(t *testing.T) {
	want := []pattern.Kind{
		pattern.KindGradient,
		pattern.KindGaussianSpots,
		pattern.KindCircles,
		pattern.KindSineWave,
		pattern.KindMovingSpots,
		pattern.KindNoise,
		pattern.KindGradient,
	}
	specs := MockPatterns(len(want), 32, 32, 1)
	for i, s := range specs {
		assert.Equal(t, want[i], s.Kind(), "channel %d", i)
		assert.NoError(t, s.Validate())
	}
}

// TestGenerateMinimal verifies the shape, names and constant values of the minimal fixture
func TestGenerateMinimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal")
	require.NoError(t, GenerateMinimal(path))

	v, err := format.Load(path)
	require.NoError(t, err)
	assert.Equal(t, format.NewDimensions(2, 1, 1, 2, 8, 8), v.Dimensions())
	assert.Equal(t, []string{"Test1", "Test2"}, v.Metadata.ChannelNames)

	for tp := 0; tp < 2; tp++ {
		for c, want := range []float32{50, 150} {
			f, err := v.Frame(tp, 0, 0, c)
			require.NoError(t, err)
			for _, x := range f {
				require.Equal(t, want, x)
			}
		}
	}
}

// TestGenerateNoiseLevel verifies the bounds and determinism of the additive noise
func TestGenerateNoiseLevel(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, GenerateMinimal(a, WithNoiseLevel(10)))
	require.NoError(t, GenerateMinimal(b, WithNoiseLevel(10)))

	da, err := os.ReadFile(a + ".data")
	require.NoError(t, err)
	db, err := os.ReadFile(b + ".data")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(da, db), "noisy payloads differ")

	v, err := format.Load(a)
	require.NoError(t, err)
	varied := false
	for c, base := range []float32{50, 150} {
		f, err := v.Frame(1, 0, 0, c)
		require.NoError(t, err)
		for _, x := range f {
			require.GreaterOrEqual(t, x, base-10)
			require.LessOrEqual(t, x, base+10)
			varied = varied || x != base
		}
	}
	assert.True(t, varied, "noise left every voxel unchanged")

	c0, err := v.Frame(0, 0, 0, 0)
	require.NoError(t, err)
	c1, err := v.Frame(0, 0, 0, 1)
	require.NoError(t, err)
	same := true
	for i := range c0 {
		same = same && c1[i]-150 == c0[i]-50
	}
	assert.False(t, same, "channels share one noise sequence")

	err = GenerateMinimal(filepath.Join(dir, "neg"), WithNoiseLevel(-1))
	assert.ErrorIs(t, err, pattern.ErrInvalidParameter)
	err = GenerateMinimal(filepath.Join(dir, "nan"), WithNoiseLevel(math.NaN()))
	assert.ErrorIs(t, err, pattern.ErrInvalidParameter)
	_, err = os.Stat(filepath.Join(dir, "neg.meta"))
	assert.True(t, os.IsNotExist(err))

	cfg := config.DefaultConfig()
	cfg.Generator.NoiseLevel = 10
	c := filepath.Join(dir, "c")
	require.NoError(t, GenerateMinimal(c, WithConfig(cfg)))
	dc, err := os.ReadFile(c + ".data")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(da, dc), "configured noise level differs from the option")
}
