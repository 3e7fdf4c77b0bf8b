// Package testutil provides reusable test helpers for the DSD conversion
// packages: filter and sample assertions and builders for synthetic DSF and
// DSDIFF files.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tphakala/simd/f64"
)

// Default tolerances for filter coefficient checks.
const (
	DefaultTolerance = 1e-10
	GainTolerance    = 1e-9
)

// Range of a right-justified 24-bit sample.
const (
	max24 = 1<<23 - 1
	min24 = -1 << 23
)

// AssertSymmetric verifies that a filter is linear phase (h[i] == h[n-1-i]).
func AssertSymmetric(t *testing.T, h []float64, tolerance float64) bool {
	t.Helper()
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		if !assert.InDelta(t, h[i], h[j], tolerance, "taps %d and %d differ", i, j) {
			return false
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that every coefficient is finite.
func AssertNoNaNOrInf(t *testing.T, h []float64) bool {
	t.Helper()
	for i, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return assert.Fail(t, "non-finite coefficient", "h[%d] = %v", i, v)
		}
	}
	return true
}

// AssertDCGain verifies that the coefficients sum to want.
func AssertDCGain(t *testing.T, h []float64, want, tolerance float64) bool {
	t.Helper()
	return assert.InDelta(t, want, f64.Sum(h), tolerance, "DC gain")
}

// AssertInRange verifies that minVal <= value <= maxVal.
func AssertInRange(t *testing.T, value, minVal, maxVal float64) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}

// AssertRightJustified verifies that every sample fits in 24 bits.
func AssertRightJustified(t *testing.T, samples []int32) bool {
	t.Helper()
	for i, s := range samples {
		if s < min24 || s > max24 {
			return assert.Fail(t, "sample exceeds 24 bits", "samples[%d] = %#x", i, s)
		}
	}
	return true
}
