package pipeline

import (
	"math"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageBuffer(t *testing.T) {
	b := NewStageBuffer(testFormat, 8)

	assert.Equal(t, 8, b.Capacity())
	assert.Equal(t, 2, b.Channels())
	assert.Len(t, b.Samples(), 16)
	assert.Empty(t, b.Valid())

	copy(b.Samples(), []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, b.SetFrames(3))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, b.Valid())

	pcm := b.PCM()
	assert.Equal(t, 3, pcm.NumFrames())
	assert.Equal(t, audio.DataTypeI32, pcm.DataType)
	assert.Same(t, testFormat, pcm.PCMFormat())
}

func TestStageBuffer_Overflow(t *testing.T) {
	b := NewStageBuffer(testFormat, 4)
	backing := b.Samples()

	assert.NoError(t, b.Fit(4))
	assert.ErrorIs(t, b.Fit(5), ErrBufferOverflow)
	assert.ErrorIs(t, b.SetFrames(5), ErrBufferOverflow)
	assert.ErrorIs(t, b.SetFrames(-1), ErrBufferOverflow)
	assert.Zero(t, b.Frames())

	// The backing store is never reallocated.
	assert.Same(t, &backing[0], &b.Samples()[0])
}

func TestJustify(t *testing.T) {
	samples := []int32{0x7FFFFF00, -256, math.MinInt32, 0x100, 0x12345678, 99}
	Justify(samples, 2, 2)

	assert.Equal(t, []int32{0x7FFFFF, -1, -0x800000, 1, 0x12345678, 99}, samples,
		"only frames*channels samples are shifted")
}
