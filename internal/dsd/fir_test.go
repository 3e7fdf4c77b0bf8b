package dsd

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/dsdflac/internal/testutil"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

const (
	testTaps     = firBytes * bitsPerByte
	testFFTSize  = 1024
	stopbandFreq = 1.0 / 16 * 1.5 // well past the packed-rate Nyquist
	stopbandMax  = 1e-3           // -60 dB
	passbandFreq = 0.01
)

func TestDesignLowPass_Properties(t *testing.T) {
	h := designLowPass(testTaps, firCutoff)

	require.Len(t, h, testTaps)
	testutil.AssertNoNaNOrInf(t, h)
	testutil.AssertSymmetric(t, h, testutil.DefaultTolerance)
	testutil.AssertDCGain(t, h, 1, testutil.GainTolerance)
	// Even length: the peak is one of the two center taps.
	assert.Contains(t, []int{testTaps/2 - 1, testTaps / 2}, floats.MaxIdx(h))
}

func TestDesignLowPass_Stopband(t *testing.T) {
	h := designLowPass(testTaps, firCutoff)

	padded := make([]float64, testFFTSize)
	copy(padded, h)
	coeffs := fourier.NewFFT(testFFTSize).Coefficients(nil, padded)

	for k, c := range coeffs {
		freq := float64(k) / testFFTSize
		mag := cmplx.Abs(c)
		switch {
		case freq <= passbandFreq:
			testutil.AssertInRange(t, mag, 0.99, 1.01)
		case freq >= stopbandFreq:
			assert.Less(t, mag, stopbandMax, "bin %d (%.4f)", k, freq)
		}
	}
}

func TestByteTables(t *testing.T) {
	h := designLowPass(testTaps, firCutoff)
	tables := newByteTables(h)

	var ones, zeros float64
	for age := range firBytes {
		ones += tables[age][0xFF]
		zeros += tables[age][0x00]
		assert.InDelta(t, -tables[age][0xFF], tables[age][0x00], testutil.DefaultTolerance)
	}
	assert.InDelta(t, 1, ones, testutil.GainTolerance)
	assert.InDelta(t, -1, zeros, testutil.GainTolerance)

	// A single set bit contributes exactly its tap relative to the all-zero
	// byte.
	for bit := range bitsPerByte {
		delta := tables[3][1<<bit] - tables[3][0]
		assert.InDelta(t, 2*h[3*bitsPerByte+bit], delta, testutil.DefaultTolerance, "bit %d", bit)
	}
}

func TestToSample(t *testing.T) {
	assert.Equal(t, int32(math.MaxInt32), toSample(1))
	assert.Equal(t, int32(math.MaxInt32), toSample(2))
	assert.Equal(t, int32(math.MinInt32), toSample(-1))
	assert.Equal(t, int32(math.MinInt32), toSample(-3))
	assert.Equal(t, int32(1<<30), toSample(0.5))
	assert.Zero(t, toSample(0))
}
