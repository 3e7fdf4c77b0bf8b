// Package pipeline streams a DSD source into an encoder.
//
// Every block goes through the same fixed sequence: read, normalize bit
// order, optionally decimate, pack into interleaved 32-bit frames, optionally
// resample, justify to 24 bits and encode. When the source is exhausted a
// resampler is drained of its buffered output and the encoder is finalized
// exactly once.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-audio/audio"

	"github.com/tphakala/dsdflac/internal/dsd"
)

// Sentinel errors.
var (
	// ErrResampleIncomplete indicates the resampler did not consume a whole
	// batch. The stream is abandoned without finalizing the encoder.
	ErrResampleIncomplete = errors.New("resampler did not consume all input")

	// ErrBufferOverflow indicates a batch larger than a stage buffer.
	ErrBufferOverflow = errors.New("stage buffer overflow")

	// ErrEncode wraps an error returned by the Encoder.
	ErrEncode = errors.New("failed to encode")
)

// Source delivers blocks of DSD data until io.EOF.
type Source interface {
	Read() (*dsd.Block, error)
}

// Packer converts a DSD block into interleaved frames.
type Packer interface {
	// Frames returns the number of frames Pack will produce for b.
	Frames(b *dsd.Block) int
	// Pack writes the frames to out and returns their count. Samples are
	// left-justified 32-bit unless rightJustify is set.
	Pack(b *dsd.Block, out []int32, rightJustify bool) int
}

// Resampler converts frames between rates. Offering zero frames requests
// buffered output; a drained resampler produces zero frames.
type Resampler interface {
	Process(in []int32, inFrames int, out []int32) (consumed, produced int, err error)
}

// Encoder consumes right-justified 24-bit frames. The buffer passed to
// EncodePCM is only valid for the duration of the call.
type Encoder interface {
	EncodePCM(buf *audio.PCMBuffer) error
	Finish() error
}

// Config sizes the stage buffers.
type Config struct {
	// Format describes the packed frames.
	Format *audio.Format
	// Capacity is the frame capacity of each stage buffer. It must hold the
	// largest packed block.
	Capacity int
}

// Stats summarizes a run.
type Stats struct {
	Blocks        int
	PackedFrames  int64
	EncodedFrames int64
	DrainBatches  int
}

// Driver runs the conversion loop.
type Driver struct {
	src       Source
	packer    Packer
	enc       Encoder
	decimator dsd.Decimator
	resampler Resampler
	progress  func(Stats)
	logger    *slog.Logger

	packed    *StageBuffer
	resampled *StageBuffer
}

// Option configures a Driver.
type Option func(*Driver)

// WithDecimator inserts d between reading and packing.
func WithDecimator(d dsd.Decimator) Option {
	return func(dr *Driver) { dr.decimator = d }
}

// WithResampler enables rate limiting through r. Its output is justified
// from 32 to 24 bits before encoding.
func WithResampler(r Resampler) Option {
	return func(dr *Driver) { dr.resampler = r }
}

// WithProgress registers fn to be called after every block.
func WithProgress(fn func(Stats)) Option {
	return func(dr *Driver) { dr.progress = fn }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(dr *Driver) { dr.logger = l }
}

// New creates a driver. Stage buffers are allocated once here.
func New(cfg Config, src Source, packer Packer, enc Encoder, opts ...Option) *Driver {
	d := &Driver{
		src:       src,
		packer:    packer,
		enc:       enc,
		decimator: dsd.PassThrough{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.packed = NewStageBuffer(cfg.Format, cfg.Capacity)
	if d.resampler != nil {
		d.resampled = NewStageBuffer(cfg.Format, cfg.Capacity)
	}
	return d
}

// Limiting reports whether frames pass through a resampler.
func (d *Driver) Limiting() bool { return d.resampler != nil }

// Run converts the whole source. The encoder is finalized exactly once,
// after draining, unless the resampler violates its contract.
func (d *Driver) Run() (Stats, error) {
	var st Stats

	err := d.stream(&st)
	if errors.Is(err, ErrResampleIncomplete) {
		return st, err
	}

	d.logger.Debug("finalizing encoder",
		"blocks", st.Blocks,
		"encoded_frames", st.EncodedFrames)
	if ferr := d.enc.Finish(); ferr != nil {
		ferr = fmt.Errorf("failed to finalize output: %w", ferr)
		if err == nil {
			return st, ferr
		}
		return st, errors.Join(err, ferr)
	}
	return st, err
}

func (d *Driver) stream(st *Stats) error {
	var encErr error
	for {
		b, err := d.src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if err := d.block(b, st); err != nil {
			if !errors.Is(err, ErrEncode) {
				return err
			}
			// The resampler is still drained after an encoder failure and
			// the drain stops at the next batch the encoder rejects.
			encErr = err
			break
		}

		if d.progress != nil {
			d.progress(*st)
		}
	}

	if d.resampler == nil {
		return encErr
	}
	err := d.drain(st)
	switch {
	case encErr == nil:
		return err
	case err == nil, errors.Is(err, ErrEncode):
		return encErr
	default:
		return errors.Join(encErr, err)
	}
}

// block processes one source block.
func (d *Driver) block(b *dsd.Block, st *Stats) error {
	st.Blocks++

	b.MSBOrder()
	b = d.decimator.Decimate(b)

	if err := d.packed.Fit(d.packer.Frames(b)); err != nil {
		return err
	}
	frames := d.packer.Pack(b, d.packed.Samples(), !d.Limiting())
	if err := d.packed.SetFrames(frames); err != nil {
		return err
	}
	st.PackedFrames += int64(frames)

	active := d.packed
	if d.Limiting() {
		consumed, produced, err := d.resampler.Process(d.packed.Samples(), frames, d.resampled.Samples())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResampleIncomplete, err)
		}
		if consumed != frames {
			return fmt.Errorf("%w: consumed %d of %d frames", ErrResampleIncomplete, consumed, frames)
		}
		if err := d.resampled.SetFrames(produced); err != nil {
			return err
		}
		Justify(d.resampled.Samples(), produced, d.resampled.Channels())
		active = d.resampled
	}

	return d.encode(active, st)
}

// drain pulls buffered resampler output until an empty batch.
func (d *Driver) drain(st *Stats) error {
	for {
		_, produced, err := d.resampler.Process(nil, 0, d.resampled.Samples())
		if err != nil {
			return fmt.Errorf("%w: drain: %w", ErrResampleIncomplete, err)
		}
		if produced == 0 {
			break
		}
		if err := d.resampled.SetFrames(produced); err != nil {
			return err
		}
		st.DrainBatches++

		Justify(d.resampled.Samples(), produced, d.resampled.Channels())
		if err := d.encode(d.resampled, st); err != nil {
			return err
		}
	}

	d.logger.Debug("resampler drained", "batches", st.DrainBatches)
	return nil
}

func (d *Driver) encode(buf *StageBuffer, st *Stats) error {
	frames := buf.Frames()
	if frames == 0 {
		return nil
	}
	if err := d.enc.EncodePCM(buf.PCM()); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	st.EncodedFrames += int64(frames)
	return nil
}
