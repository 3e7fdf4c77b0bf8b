package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/tphakala/dsdflac/internal/profile"
)

const (
	testInRate    = 352800
	testOutRate   = 44100
	testBatch     = 4096
	testBatches   = 16
	testToneHz    = 1000
	testAmplitude = 0.5
)

// sine returns frames of an interleaved tone, identical on every channel,
// starting at frame offset.
func sine(offset, frames, channels int) []int32 {
	out := make([]int32, frames*channels)
	for i := range frames {
		v := testAmplitude * math.Sin(2*math.Pi*testToneHz*float64(offset+i)/testInRate)
		s := int32(v * fullScale)
		for ch := range channels {
			out[i*channels+ch] = s
		}
	}
	return out
}

// run streams testBatches batches through r with an output buffer of outCap
// frames and returns everything produced, including the drain.
func run(t *testing.T, r *Resampler, channels, outCap int) []int32 {
	t.Helper()
	var all []int32
	out := make([]int32, outCap*channels)

	for b := range testBatches {
		in := sine(b*testBatch, testBatch, channels)
		consumed, produced, err := r.Process(in, testBatch, out)
		require.NoError(t, err)
		require.Equal(t, testBatch, consumed)
		require.LessOrEqual(t, produced, outCap)
		all = append(all, out[:produced*channels]...)
	}

	for range 10_000 {
		consumed, produced, err := r.Process(nil, 0, out)
		require.NoError(t, err)
		require.Zero(t, consumed)
		if produced == 0 {
			return all
		}
		all = append(all, out[:produced*channels]...)
	}
	require.FailNow(t, "drain did not terminate")
	return nil
}

func rms(samples []int32) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s) / fullScale
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func newTestResampler(t *testing.T, p profile.Profile, channels int) *Resampler {
	t.Helper()
	r, err := New(p, testInRate, testOutRate, channels, testBatch)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestResampler_StereoStream(t *testing.T) {
	r := newTestResampler(t, profile.Default(), 2)
	assert.InDelta(t, 0.125, r.Ratio(), 1e-12)

	out := run(t, r, 2, testBatch)
	require.Zero(t, len(out)%2)

	frames := len(out) / 2
	expected := testBatches * testBatch / 8
	assert.InDelta(t, expected, frames, 1)

	// Identical channels must stay identical.
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			require.Failf(t, "channels diverge", "frame %d: %d != %d", i/2, out[i], out[i+1])
		}
	}
}

func TestResampler_DrainKeepsLength(t *testing.T) {
	// The last batch is partial so the expected length needs rounding.
	const tail = 1001
	inFrames := testBatches*testBatch + tail
	expected := int(math.Round(float64(inFrames) * testOutRate / testInRate))

	for _, recipe := range []string{"q", "l", "m", "h", "v"} {
		t.Run(recipe, func(t *testing.T) {
			r := newTestResampler(t, profile.Parse(recipe), 2)
			out := make([]int32, 2*testBatch)
			frames := 0

			for off := 0; off < inFrames; off += testBatch {
				n := min(testBatch, inFrames-off)
				consumed, produced, err := r.Process(sine(off, n, 2), n, out)
				require.NoError(t, err)
				require.Equal(t, n, consumed)
				frames += produced
			}
			for {
				_, produced, err := r.Process(nil, 0, out)
				require.NoError(t, err)
				if produced == 0 {
					break
				}
				frames += produced
			}

			assert.InDelta(t, expected, frames, 1)
		})
	}
}

func TestResampler_DrainWithoutInput(t *testing.T) {
	r := newTestResampler(t, profile.Parse("v"), 2)
	_, produced, err := r.Process(nil, 0, make([]int32, 2*testBatch))
	require.NoError(t, err)
	assert.Zero(t, produced)
}

func TestResampler_BoundedOutput(t *testing.T) {
	const smallCap = 100
	ref := run(t, newTestResampler(t, profile.Default(), 2), 2, testBatch)
	small := run(t, newTestResampler(t, profile.Default(), 2), 2, smallCap)

	// A small output buffer only delays delivery; nothing is lost.
	assert.Equal(t, ref, small)
}

func TestResampler_Attenuation(t *testing.T) {
	plain := run(t, newTestResampler(t, profile.Default(), 1), 1, testBatch)

	p := profile.Parse("h::6")
	require.InDelta(t, math.Pow(10, -6.0/20), p.Scale, 1e-12)
	quiet := run(t, newTestResampler(t, p, 1), 1, testBatch)

	require.Equal(t, len(plain), len(quiet))
	require.NotZero(t, rms(plain))
	assert.InDelta(t, p.Scale, rms(quiet)/rms(plain), 1e-3)
}

func TestResampler_DrainIsIdempotent(t *testing.T) {
	r := newTestResampler(t, profile.Default(), 2)
	out := make([]int32, 2*testBatch)

	_, _, err := r.Process(sine(0, testBatch, 2), testBatch, out)
	require.NoError(t, err)

	for {
		_, produced, err := r.Process(nil, 0, out)
		require.NoError(t, err)
		if produced == 0 {
			break
		}
	}

	_, produced, err := r.Process(nil, 0, out)
	require.NoError(t, err)
	assert.Zero(t, produced)
}

func TestResampler_ShortInput(t *testing.T) {
	r := newTestResampler(t, profile.Default(), 2)
	_, _, err := r.Process(make([]int32, 10), 10, make([]int32, 20))
	assert.Error(t, err)
}

func TestResampler_Closed(t *testing.T) {
	r, err := New(profile.Default(), testInRate, testOutRate, 2, testBatch)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, _, err = r.Process(nil, 0, make([]int32, 2))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		p        profile.Profile
		in, out  float64
		channels int
	}{
		{"no channels", profile.Default(), testInRate, testOutRate, 0},
		{"zero output rate", profile.Default(), testInRate, 0, 2},
		{"ratio out of range", profile.Default(), 2822400, 1000, 2},
		{"clamped precision", profile.Parse("h:::0"), testInRate, testOutRate, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p, tt.in, tt.out, tt.channels, testBatch)
			require.Error(t, err)
			assert.ErrorIs(t, err, resampler.ErrInvalidConfig)
		})
	}
}

func TestNew_NoBatch(t *testing.T) {
	_, err := New(profile.Default(), testInRate, testOutRate, 2, 0)
	assert.ErrorIs(t, err, resampler.ErrInvalidConfig)
}

func TestRing_Truncate(t *testing.T) {
	r := newRing(4)
	r.Write([]int32{1, 2, 3})
	dst := make([]int32, 2)
	r.ReadInto(dst)

	// Wrapped contents {3, 4, 5, 6}; keep the oldest two.
	r.Write([]int32{4, 5, 6})
	r.Truncate(2)
	assert.Equal(t, 2, r.Len())

	r.Truncate(5)
	assert.Equal(t, 2, r.Len(), "truncating past the end is a no-op")

	r.Write([]int32{7})
	all := make([]int32, 8)
	n := r.ReadInto(all)
	assert.Equal(t, []int32{3, 4, 7}, all[:n])

	r.Write([]int32{8})
	r.Truncate(-1)
	assert.Zero(t, r.Len())
}

func TestRing(t *testing.T) {
	r := newRing(4)
	r.Write([]int32{1, 2, 3})

	dst := make([]int32, 2)
	require.Equal(t, 2, r.ReadInto(dst))
	assert.Equal(t, []int32{1, 2}, dst)

	// Wraps, then grows while wrapped.
	r.Write([]int32{4, 5, 6})
	r.Write([]int32{7, 8, 9, 10})
	assert.Equal(t, 8, r.Len())

	all := make([]int32, 16)
	n := r.ReadInto(all)
	assert.Equal(t, []int32{3, 4, 5, 6, 7, 8, 9, 10}, all[:n])
	assert.Zero(t, r.Len())
	assert.Zero(t, r.ReadInto(all))
}
