// Package encoder writes 24-bit FLAC streams to an io.Writer using the
// libFLAC stream encoder from github.com/drgolem/go-flac.
package encoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/drgolem/go-flac/flac"
	"github.com/go-audio/audio"
)

// BitDepth is the sample width of every stream this package produces.
// Samples passed to Encode must be right-justified to it.
const BitDepth = 24

// Common errors.
var (
	// ErrFinished is returned when the stream has already been finalized.
	ErrFinished = errors.New("encoder already finished")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("encoder is closed")
)

// FLAC is an initialized stream encoder. Encoded bytes are forwarded to the
// destination writer after every call.
type FLAC struct {
	enc    *flac.FlacEncoder
	w      io.Writer
	format audio.Format

	frames   int64
	written  int64
	finished bool
	closed   bool
}

type options struct {
	compression int
	totalFrames int64
}

// Option configures New.
type Option func(*options)

// WithCompressionLevel sets the libFLAC compression level (0 fastest,
// 8 smallest). The default is 0.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.compression = level }
}

// WithTotalFrames records the expected stream length in STREAMINFO.
func WithTotalFrames(frames int64) Option {
	return func(o *options) { o.totalFrames = frames }
}

// New creates and initializes an encoder for format, writing to w. The
// stream header is written before New returns.
func New(w io.Writer, format *audio.Format, opts ...Option) (*FLAC, error) {
	if format == nil {
		return nil, errors.New("encoder: nil format")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := flac.NewFlacEncoder(format.SampleRate, format.NumChannels, BitDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to create FLAC encoder: %w", err)
	}

	e := &FLAC{enc: enc, w: w, format: *format}

	if err := enc.SetCompressionLevel(o.compression); err != nil {
		e.release()
		return nil, fmt.Errorf("failed to configure FLAC encoder: %w", err)
	}
	if o.totalFrames > 0 {
		if err := enc.SetTotalSamplesEstimate(o.totalFrames); err != nil {
			e.release()
			return nil, fmt.Errorf("failed to configure FLAC encoder: %w", err)
		}
	}
	if err := enc.InitStream(); err != nil {
		e.release()
		return nil, fmt.Errorf("failed to initialize FLAC encoder: %w", err)
	}
	if err := e.drain(); err != nil {
		e.release()
		return nil, err
	}

	return e, nil
}

// Format returns the stream format.
func (e *FLAC) Format() audio.Format { return e.format }

// Frames returns the number of frames accepted so far.
func (e *FLAC) Frames() int64 { return e.frames }

// BytesWritten returns the number of encoded bytes delivered to the writer.
func (e *FLAC) BytesWritten() int64 { return e.written }

// Encode submits frames interleaved frames from samples.
func (e *FLAC) Encode(samples []int32, frames int) error {
	if err := e.usable(); err != nil {
		return err
	}
	if err := e.enc.ProcessInterleaved(samples, frames); err != nil {
		return fmt.Errorf("failed to encode %d frames: %w", frames, err)
	}
	e.frames += int64(frames)
	return e.drain()
}

// EncodePCM submits the frames held in buf. Its channel count must match the
// stream.
func (e *FLAC) EncodePCM(buf *audio.PCMBuffer) error {
	if f := buf.PCMFormat(); f != nil && f.NumChannels != e.format.NumChannels {
		return fmt.Errorf("buffer has %d channels, stream has %d", f.NumChannels, e.format.NumChannels)
	}
	return e.Encode(buf.AsI32(), buf.NumFrames())
}

// Finish finalizes the stream and writes the remaining bytes. It can only be
// called once.
func (e *FLAC) Finish() error {
	if err := e.usable(); err != nil {
		return err
	}
	e.finished = true

	if err := e.enc.Finish(); err != nil {
		return fmt.Errorf("failed to finish FLAC stream: %w", err)
	}
	return e.drain()
}

// Close releases the encoder. If Finish was never called the stream is
// abandoned and nothing more is written.
func (e *FLAC) Close() error {
	if e.closed {
		return nil
	}
	e.release()
	return nil
}

func (e *FLAC) release() {
	e.closed = true
	e.enc.Close()
}

func (e *FLAC) usable() error {
	switch {
	case e.closed:
		return ErrClosed
	case e.finished:
		return ErrFinished
	}
	return nil
}

// drain forwards encoded bytes collected by the stream callback.
func (e *FLAC) drain() error {
	buf := e.enc.TakeBytes()
	if len(buf) == 0 {
		return nil
	}
	n, err := e.w.Write(buf)
	e.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write FLAC output: %w", err)
	}
	return nil
}
