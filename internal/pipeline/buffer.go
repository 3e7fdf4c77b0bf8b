package pipeline

import (
	"fmt"

	"github.com/go-audio/audio"
)

// StageBuffer holds interleaved 32-bit frames passed between two pipeline
// stages. Its capacity is fixed at construction; the backing store is never
// reallocated and a batch larger than the capacity is rejected.
type StageBuffer struct {
	buf      *audio.PCMBuffer
	view     audio.PCMBuffer
	channels int
	capacity int
	frames   int
}

// NewStageBuffer allocates room for capacity frames in format.
func NewStageBuffer(format *audio.Format, capacity int) *StageBuffer {
	channels := max(format.NumChannels, 1)
	capacity = max(capacity, 0)
	return &StageBuffer{
		buf: &audio.PCMBuffer{
			Format:         format,
			I32:            make([]int32, capacity*channels),
			DataType:       audio.DataTypeI32,
			SourceBitDepth: sampleBytes,
		},
		channels: channels,
		capacity: capacity,
	}
}

// Capacity returns the maximum number of frames the buffer holds.
func (b *StageBuffer) Capacity() int { return b.capacity }

// Channels returns the number of interleaved channels.
func (b *StageBuffer) Channels() int { return b.channels }

// Frames returns the number of valid frames.
func (b *StageBuffer) Frames() int { return b.frames }

// Samples returns the whole backing store for a producer to fill.
func (b *StageBuffer) Samples() []int32 { return b.buf.I32 }

// Valid returns the valid samples, frames*channels of them.
func (b *StageBuffer) Valid() []int32 { return b.buf.I32[:b.frames*b.channels] }

// Fit reports ErrBufferOverflow if frames would not fit.
func (b *StageBuffer) Fit(frames int) error {
	if frames < 0 || frames > b.capacity {
		return fmt.Errorf("%w: %d frames, capacity %d", ErrBufferOverflow, frames, b.capacity)
	}
	return nil
}

// SetFrames records how many frames a producer wrote.
func (b *StageBuffer) SetFrames(frames int) error {
	if err := b.Fit(frames); err != nil {
		return err
	}
	b.frames = frames
	return nil
}

// PCM returns the valid frames as a go-audio buffer sharing this buffer's
// storage. The returned buffer is reused by the next call.
func (b *StageBuffer) PCM() *audio.PCMBuffer {
	b.view = *b.buf
	b.view.I32 = b.Valid()
	return &b.view
}
