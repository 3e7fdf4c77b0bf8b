package profile

import (
	"strconv"
	"strings"
)

const (
	fieldSeparator = ':'

	defaultScale     = 1.0
	maxScale         = 1.0
	dbPerScaleDecade = 20.0
	percentScale     = 100.0

	precisionFloor = 0.0
	bandFloor      = 0.0
	phaseFloor     = -1.0

	linearPhaseResponse       = 50.0
	intermediatePhaseResponse = 25.0
	minimumPhaseResponse      = 0.0

	// Fraction of the transition band kept by the steep modifier.
	steepTransitionFactor = 0.2

	hexBase = 16
)

// atof parses the longest numeric prefix of s, returning 0 when there is
// none. "12dB" reads as 12.
func atof(s string) float64 {
	s = strings.TrimSpace(s)
	for end := len(s); end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
	}
	return 0
}

// parseHex reads a hexadecimal mask with an optional 0x prefix. Parsing stops
// at the first non-hex character; no digits yields 0.
func parseHex(s string) uint32 {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")

	end := 0
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0
	}

	v, err := strconv.ParseUint(s[:end], hexBase, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func formatHex(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), hexBase)
}
