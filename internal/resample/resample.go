// Package resample adapts github.com/tphakala/go-audio-resampler to a
// streaming contract over interleaved, left-justified 32-bit frames: every
// Process call reports how many input frames it consumed and how many output
// frames it produced, and output never exceeds the caller's buffer.
//
// Each channel runs through its own mono resampler so that flushing at end of
// stream releases the filter tail of every channel.
package resample

import (
	"errors"
	"fmt"
	"math"

	resampler "github.com/tphakala/go-audio-resampler"
	"github.com/tphakala/simd/f64"

	"github.com/tphakala/dsdflac/internal/profile"
)

var (
	// ErrClosed is returned by Process after Close.
	ErrClosed = errors.New("resampler is closed")

	// ErrShortTail is returned when draining stops releasing output before
	// the stream reaches its expected length.
	ErrShortTail = errors.New("resampler tail is shorter than expected")
)

// Resampler converts interleaved frames from one rate to another.
type Resampler struct {
	channels int
	scale    float64
	ratio    float64

	conv      []resampler.Resampler
	maxFrames int
	planar    [][]float64
	mixed     []float64
	samples   []int32
	pending   *ring
	flushed   bool

	// Frames offered and frames queued since creation.
	offered int64
	queued  int64
}

// New creates a resampler from inRate to outRate for the given profile.
// maxFrames is the largest number of frames a single Process call offers.
func New(p profile.Profile, inRate, outRate float64, channels, maxFrames int) (*Resampler, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", resampler.ErrInvalidConfig, channels)
	}
	if maxFrames < 1 {
		return nil, fmt.Errorf("%w: %d frames per batch", resampler.ErrInvalidConfig, maxFrames)
	}

	quality := p.QualitySpec()
	r := &Resampler{
		channels:  channels,
		scale:     p.Scale,
		ratio:     outRate / inRate,
		conv:      make([]resampler.Resampler, channels),
		maxFrames: maxFrames,
		planar:    make([][]float64, channels),
		pending:   newRing(pendingFrames(maxFrames, outRate/inRate) * channels),
	}
	if r.scale == 0 {
		r.scale = 1
	}

	for ch := range channels {
		conv, err := resampler.New(&resampler.Config{
			InputRate:    inRate,
			OutputRate:   outRate,
			Channels:     1,
			Quality:      quality,
			MaxInputSize: maxFrames,
			EnableSIMD:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create resampler: %w", err)
		}
		r.conv[ch] = conv
		r.planar[ch] = make([]float64, maxFrames)
	}

	return r, nil
}

func pendingFrames(maxFrames int, ratio float64) int {
	return int(math.Ceil(float64(maxFrames)*ratio)) + pendingSlack
}

// Ratio returns outRate/inRate.
func (r *Resampler) Ratio() float64 { return r.ratio }

// expected returns the number of output frames the input offered so far
// amounts to once drained.
func (r *Resampler) expected() int64 {
	return int64(math.Round(float64(r.offered) * r.Ratio()))
}

// Latency returns the filter delay in output frames.
func (r *Resampler) Latency() int {
	if len(r.conv) == 0 {
		return 0
	}
	return r.conv[0].GetLatency()
}

// Process offers inFrames interleaved frames from in and writes up to
// len(out)/channels frames to out. Calling it with inFrames == 0 signals end
// of input: the filter tails are drained until the stream holds exactly
// round(offered*Ratio()) frames, and subsequent calls keep returning
// buffered output until none is left.
func (r *Resampler) Process(in []int32, inFrames int, out []int32) (consumed, produced int, err error) {
	if r.conv == nil {
		return 0, 0, ErrClosed
	}
	if len(in) < inFrames*r.channels {
		return 0, 0, fmt.Errorf("input holds %d samples, need %d", len(in), inFrames*r.channels)
	}

	if inFrames > 0 {
		if err := r.convert(in, inFrames); err != nil {
			return 0, 0, err
		}
		r.offered += int64(inFrames)
		consumed = inFrames
	} else if !r.flushed {
		r.flushed = true
		if err := r.drain(); err != nil {
			return 0, 0, err
		}
	}

	capacity := len(out) / r.channels
	n := r.pending.ReadInto(out[:capacity*r.channels])
	return consumed, n / r.channels, nil
}

// convert feeds one batch through every channel and queues the output.
func (r *Resampler) convert(in []int32, frames int) error {
	for ch := range r.channels {
		buf := r.planar[ch]
		if cap(buf) < frames {
			buf = make([]float64, frames)
			r.planar[ch] = buf
		}
		buf = buf[:frames]
		for i := range frames {
			buf[i] = float64(in[i*r.channels+ch]) / fullScale
		}
		f64.Scale(buf, buf, r.scale)
	}
	return r.process(frames)
}

// process runs the first frames of every planar buffer through its channel.
func (r *Resampler) process(frames int) error {
	outputs := make([][]float64, r.channels)
	for ch, conv := range r.conv {
		y, err := conv.Process(r.planar[ch][:frames])
		if err != nil {
			return fmt.Errorf("resampling channel %d: %w", ch, err)
		}
		outputs[ch] = y
	}
	r.queue(outputs)
	return nil
}

// drain flushes the filters, then pushes silence through them until the
// queued output reaches the expected length, and drops anything beyond it.
// A single Flush leaves samples inside the later stages of a multi-stage
// converter.
func (r *Resampler) drain() error {
	target := r.expected()
	if err := r.flush(); err != nil {
		return err
	}

	if r.queued < target {
		for ch := range r.planar {
			clear(r.planar[ch][:r.maxFrames])
		}
		budget := r.silenceBatches(target - r.queued)
		for range budget {
			if r.queued >= target {
				break
			}
			if err := r.process(r.maxFrames); err != nil {
				return err
			}
		}
		if r.queued < target {
			return fmt.Errorf("%w: %d of %d frames", ErrShortTail, r.queued, target)
		}
	}

	excess := int(r.queued - target)
	r.pending.Truncate(r.pending.Len() - excess*r.channels)
	r.queued = target
	return nil
}

// silenceBatches bounds the number of silent batches needed to release
// missing frames. The filter delay is counted twice to cover every stage.
func (r *Resampler) silenceBatches(missing int64) int {
	frames := float64(missing+int64(tailFactor*r.Latency())) / r.ratio
	return int(math.Ceil(frames/float64(r.maxFrames))) + tailBatches
}

func (r *Resampler) flush() error {
	outputs := make([][]float64, r.channels)
	for ch, conv := range r.conv {
		y, err := conv.Flush()
		if err != nil {
			return fmt.Errorf("flushing channel %d: %w", ch, err)
		}
		outputs[ch] = y
	}
	r.queue(outputs)
	return nil
}

// queue interleaves planar output into the pending ring. Channels are
// truncated to the shortest one so frames stay aligned.
func (r *Resampler) queue(outputs [][]float64) {
	frames := len(outputs[0])
	for _, y := range outputs[1:] {
		frames = min(frames, len(y))
	}
	if frames == 0 {
		return
	}

	total := frames * r.channels
	if cap(r.mixed) < total {
		r.mixed = make([]float64, total)
		r.samples = make([]int32, total)
	}
	mixed := r.mixed[:total]
	samples := r.samples[:total]

	if r.channels == stereoChannels {
		f64.Interleave2(mixed, outputs[0][:frames], outputs[1][:frames])
	} else {
		for ch, y := range outputs {
			for i := range frames {
				mixed[i*r.channels+ch] = y[i]
			}
		}
	}

	for i, v := range mixed {
		samples[i] = toSample(v)
	}
	r.pending.Write(samples)
	r.queued += int64(frames)
}

// Close releases the per-channel resamplers. Buffered output is discarded.
func (r *Resampler) Close() error {
	for _, conv := range r.conv {
		conv.Reset()
	}
	r.conv = nil
	r.pending.Reset()
	return nil
}

func toSample(v float64) int32 {
	s := v * fullScale
	switch {
	case s >= math.MaxInt32:
		return math.MaxInt32
	case s <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(math.Round(s))
	}
}
