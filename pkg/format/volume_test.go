package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameIndexRoundTrip(t *testing.T) {
	d := NewDimensions(3, 2, 4, 2, 5, 7)
	for frame := 0; frame < d.Frames(); frame++ {
		tt, p, z, c := d.FrameCoords(frame)
		require.True(t, d.containsFrame(tt, p, z, c))
		require.Equal(t, frame, d.FrameIndex(tt, p, z, c))
	}
	assert.Equal(t, 1, d.FrameIndex(0, 0, 0, 1))
	assert.Equal(t, 2, d.FrameIndex(0, 0, 1, 0))
	assert.Equal(t, 8, d.FrameIndex(0, 1, 0, 0))
	assert.Equal(t, 16, d.FrameIndex(1, 0, 0, 0))
}

func TestVolumeAccess(t *testing.T) {
	v, err := NewVolume(testMetadata(t))
	require.NoError(t, err)
	assert.Equal(t, uint64(49152), v.MemoryUsage())
	assert.Equal(t, v.Metadata.Dimensions, v.Dimensions())

	require.NoError(t, v.Set(1, 0, 1, 0, 3, 4, 7))
	got, err := v.At(1, 0, 1, 0, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, float32(7), got)

	frame, err := v.Frame(1, 0, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(7), frame[3*32+4])
	assert.Len(t, frame, 32*32)
	assert.Equal(t, len(frame), cap(frame), "frames must not expose the following plane")

	_, err = v.At(0, 0, 0, 0, 32, 0)
	assert.Error(t, err)
	assert.Error(t, v.Set(0, 1, 0, 0, 0, 0, 1))
	_, err = v.Frame(0, 0, 2, 0)
	assert.ErrorContains(t, err, "z index 2 out of bounds (max: 1)")
}

func TestVolumeSetFrame(t *testing.T) {
	v, err := NewVolume(testMetadata(t))
	require.NoError(t, err)

	plane := make([]float32, 32*32)
	for i := range plane {
		plane[i] = float32(i)
	}
	require.NoError(t, v.SetFrame(2, 0, 0, 1, plane))
	got, err := v.At(2, 0, 0, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(32), got)

	assert.Error(t, v.SetFrame(0, 0, 0, 0, plane[:10]))
}

func TestNewVolumeRejectsInvalidMetadata(t *testing.T) {
	m := testMetadata(t)
	m.Dimensions.C = -1
	_, err := NewVolume(m)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
