// Package policy decides how a DSD source is carried to the encoder: DoP or
// direct PCM, whether the bitstream is decimated first, which rate the
// packers produce and whether a resampling stage is needed to honor a
// frequency ceiling. It also sizes the intermediate sample buffers.
package policy

import (
	"github.com/go-audio/audio"
)

// Standard DSD rates.
const (
	DSD64  = 64 * 44100
	DSD128 = 128 * 44100
)

// Fixed ratios between the DSD bit rate and the packed PCM frame rate.
const (
	DoPRatio    = 16
	DirectRatio = 8

	// halfrateDoPFloor bounds the ceiling below which DoP cannot be kept
	// even after halving the bitstream.
	halfrateDoPFloor = 2 * DoPRatio
)

// Request carries the source properties and user constraints.
type Request struct {
	SourceRate int
	Channels   int
	// Ceiling is the highest output rate allowed, 0 for unconstrained.
	Ceiling int
	DoP     bool
	// AllowHalfRate enables the halfrate decimation strategy. It is reserved
	// and not exposed by the command line.
	AllowHalfRate bool
}

// Mode is the negotiated stream configuration.
type Mode struct {
	DoP      bool
	HalfRate bool
	Channels int
	// SourceRate is the DSD bit rate after optional decimation.
	SourceRate int
	// WorkingRate is the frame rate produced by the packer.
	WorkingRate int
	// Limit is the resampler target rate, 0 when no resampling is needed.
	Limit int
}

// Select applies the mode policy to a request.
func Select(req Request) Mode {
	freq := req.SourceRate
	dop := req.DoP
	halfrate := false

	if req.AllowHalfRate {
		if dop && req.Ceiling != 0 && req.Ceiling < freq/DoPRatio {
			if req.Ceiling < freq/halfrateDoPFloor || freq < DSD128 {
				dop = false
			} else {
				halfrate = true
				freq /= 2
			}
		}
		if !dop && freq > DSD64 {
			halfrate = true
			freq /= 2
		}
	} else if req.Ceiling != 0 && req.Ceiling < freq/DoPRatio {
		// DoP cannot carry that much downsampling.
		dop = false
	}

	m := Mode{
		DoP:        dop,
		HalfRate:   halfrate,
		Channels:   req.Channels,
		SourceRate: freq,
		Limit:      req.Ceiling,
	}

	if dop {
		m.WorkingRate = freq / DoPRatio
	} else {
		m.WorkingRate = freq / DirectRatio
	}

	if m.Limit >= m.WorkingRate {
		m.Limit = 0
	}

	return m
}

// Limiting reports whether a resampling stage is required.
func (m Mode) Limiting() bool { return m.Limit != 0 }

// OutputRate is the sample rate of the encoded stream.
func (m Mode) OutputRate() int {
	if m.Limiting() {
		return m.Limit
	}
	return m.WorkingRate
}

// Format describes the encoded stream.
func (m Mode) Format() *audio.Format {
	return &audio.Format{
		NumChannels: m.Channels,
		SampleRate:  m.OutputRate(),
	}
}

// Capacity returns the per-channel frame capacity of the stage buffers for a
// decoder delivering at most maxBytesPerChannel bytes per read. DoP packs two
// DSD bytes into one frame, so its worst case is half the direct one.
func Capacity(maxBytesPerChannel int, dop bool) int {
	if dop {
		return maxBytesPerChannel / 2
	}
	return maxBytesPerChannel
}
