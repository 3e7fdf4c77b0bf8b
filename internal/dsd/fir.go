package dsd

import (
	"math"

	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/window"
)

const byteValues = 256

// byteTables is a lowpass FIR over the DSD bitstream folded into one lookup
// table per history byte: tables[a][v] is the contribution of byte value v
// received a bytes ago.
type byteTables [firBytes][byteValues]float64

// designLowPass returns a Blackman windowed-sinc lowpass filter with unity DC
// gain. cutoff is normalized to the input rate.
func designLowPass(taps int, cutoff float64) []float64 {
	h := make([]float64, taps)
	center := float64(taps-1) / 2

	for n := range h {
		x := float64(n) - center
		if x == 0 {
			h[n] = 2 * cutoff
			continue
		}
		h[n] = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
	}

	window.Blackman(h)
	f64.Scale(h, h, 1/f64.Sum(h))
	return h
}

// newByteTables folds h, which must have firBytes*8 taps, into byte tables.
// Tap k weights the bit received k bit periods ago; within a byte the most
// significant bit is the oldest.
func newByteTables(h []float64) *byteTables {
	t := new(byteTables)
	for age := range firBytes {
		for v := range byteValues {
			var sum float64
			for bit := range bitsPerByte {
				tap := h[age*bitsPerByte+bit]
				if v&(1<<bit) != 0 {
					sum += tap
				} else {
					sum -= tap
				}
			}
			t[age][v] = sum
		}
	}
	return t
}

var pcmTables = newByteTables(designLowPass(firBytes*bitsPerByte, firCutoff))

// toSample converts a normalized value to a left-justified 32-bit sample,
// saturating at full scale.
func toSample(v float64) int32 {
	s := v * fullScale
	switch {
	case s >= math.MaxInt32:
		return math.MaxInt32
	case s <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(s)
	}
}
