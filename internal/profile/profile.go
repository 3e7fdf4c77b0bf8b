// Package profile builds resampler quality profiles from the colon-delimited
// quality option.
//
// The option carries up to seven positional fields:
//
//	recipe:flags:attenuation:precision:passband_end:stopband_begin:phase_response
//
// recipe is a set of letters selecting a quality tier (v, h, m, l, q) and
// layering phase (L, I, M) and steepness (s) modifiers. flags is a
// hexadecimal mask. attenuation is in dB. passband_end and stopband_begin are
// percentages of the output Nyquist frequency. Every field is optional and
// an empty field keeps its default.
package profile

import (
	"log/slog"
	"math"
	"strings"

	resampler "github.com/tphakala/go-audio-resampler"
)

// Recipe packs a quality tier with phase and steepness modifiers.
type Recipe uint32

// Quality tiers occupy the low nibble of a Recipe.
const (
	TierQuick    Recipe = 0
	TierLow      Recipe = 1
	TierMedium   Recipe = 2
	TierHigh     Recipe = 4
	TierVeryHigh Recipe = 6

	tierMask Recipe = 0x0f
)

// Phase and steepness modifiers.
const (
	LinearPhase       Recipe = 0x00
	IntermediatePhase Recipe = 0x10
	MinimumPhase      Recipe = 0x30
	SteepFilter       Recipe = 0x40

	phaseMask Recipe = 0x30
)

// Tier returns the quality tier of the recipe.
func (r Recipe) Tier() Recipe { return r & tierMask }

// Phase returns the phase modifier bits of the recipe.
func (r Recipe) Phase() Recipe { return r & phaseMask }

// Steep reports whether the steep filter modifier is set.
func (r Recipe) Steep() bool { return r&SteepFilter != 0 }

// Override is an optional numeric parameter.
type Override struct {
	Value float64
	Set   bool
}

// Or returns the override value when set, def otherwise.
func (o Override) Or(def float64) float64 {
	if o.Set {
		return o.Value
	}
	return def
}

func set(v float64) Override { return Override{Value: v, Set: true} }

// Profile is an immutable resampler configuration. Each field corresponds to
// exactly one position of the quality option; tier defaults for the numeric
// parameters are resolved by QualitySpec.
type Profile struct {
	Recipe        Recipe
	Flags         uint32
	Scale         float64
	Precision     Override
	PassbandEnd   Override
	StopbandBegin Override
	PhaseResponse Override
}

// Default returns the high quality, linear phase profile used when no quality
// option is given.
func Default() Profile {
	return Profile{
		Recipe: TierHigh | LinearPhase,
		Scale:  defaultScale,
	}
}

// Parse builds a profile from a quality option. Malformed or out of range
// values never fail: they fall back to defaults or are clamped.
func Parse(spec string) Profile {
	p := Default()
	if spec == "" {
		return p
	}

	t := NewTokenizer(spec, fieldSeparator)

	if f, ok := t.Next(); ok {
		p.Recipe = ParseRecipe(f)
	}
	if f, ok := t.Next(); ok {
		p.Flags |= parseHex(f)
	}
	if f, ok := t.Next(); ok {
		if scale, ok := AttenuationScale(atof(f)); ok {
			p.Scale = scale
		}
	}
	if f, ok := t.Next(); ok {
		p.Precision = set(ClampPrecision(atof(f)))
	}
	if f, ok := t.Next(); ok {
		p.PassbandEnd = set(ClampBand(atof(f)))
	}
	if f, ok := t.Next(); ok {
		p.StopbandBegin = set(ClampBand(atof(f)))
	}
	if f, ok := t.Next(); ok {
		p.PhaseResponse = set(ClampPhase(atof(f)))
	}

	return p
}

// ParseRecipe scans recipe letters in the fixed order v, h, m, l, q for the
// tier (a later letter in that order wins) and then L, I, M, s for modifiers.
// Unknown letters are ignored.
func ParseRecipe(letters string) Recipe {
	recipe := TierHigh
	for _, l := range tierLetters {
		if strings.ContainsRune(letters, l.letter) {
			recipe = l.recipe
		}
	}
	for _, l := range modifierLetters {
		if strings.ContainsRune(letters, l.letter) {
			recipe |= l.recipe
		}
	}
	return recipe
}

type recipeLetter struct {
	letter rune
	recipe Recipe
}

var tierLetters = []recipeLetter{
	{'v', TierVeryHigh},
	{'h', TierHigh},
	{'m', TierMedium},
	{'l', TierLow},
	{'q', TierQuick},
}

var modifierLetters = []recipeLetter{
	{'L', LinearPhase},
	{'I', IntermediatePhase},
	{'M', MinimumPhase},
	{'s', SteepFilter},
}

// AttenuationScale converts an attenuation in dB to a linear output scale.
// ok is false when the scale falls outside (0, 1], i.e. for negative dB.
func AttenuationScale(db float64) (scale float64, ok bool) {
	scale = math.Pow(10, -db/dbPerScaleDecade)
	return scale, scale > 0 && scale <= maxScale
}

// ClampPrecision raises negative precision to zero.
func ClampPrecision(bits float64) float64 {
	if bits < precisionFloor {
		return precisionFloor
	}
	return bits
}

// ClampBand converts a percentage to a fraction, raising negative values to
// zero.
func ClampBand(percent float64) float64 {
	v := percent / percentScale
	if v < bandFloor {
		return bandFloor
	}
	return v
}

// ClampPhase raises phase responses below -1 to -1.
func ClampPhase(phase float64) float64 {
	if phase < phaseFloor {
		return phaseFloor
	}
	return phase
}

// QualitySpec resolves the profile into a resampler quality specification.
// A bare tier maps to the matching preset. Any modifier, flag or override
// produces a custom spec seeded from that preset.
func (p Profile) QualitySpec() resampler.QualitySpec {
	preset := tierPreset(p.Recipe.Tier())
	if p.Recipe == p.Recipe.Tier() && p.Flags == 0 && !p.hasOverrides() {
		return resampler.QualitySpec{Preset: preset}
	}

	q := resampler.GetPresetSpec(preset)
	q.Preset = resampler.QualityCustom
	q.PhaseResponse = phaseResponse(p.Recipe.Phase())
	q.Flags = resampler.QualityFlags(p.Flags) | phaseFlags(p.Recipe.Phase())

	if p.Recipe.Steep() {
		q.PassbandEnd = q.StopbandBegin - (q.StopbandBegin-q.PassbandEnd)*steepTransitionFactor
	}

	q.Precision = int(math.Round(p.Precision.Or(float64(q.Precision))))
	q.PassbandEnd = p.PassbandEnd.Or(q.PassbandEnd)
	q.StopbandBegin = p.StopbandBegin.Or(q.StopbandBegin)
	q.PhaseResponse = p.PhaseResponse.Or(q.PhaseResponse)

	return q
}

func (p Profile) hasOverrides() bool {
	return p.Precision.Set || p.PassbandEnd.Set || p.StopbandBegin.Set || p.PhaseResponse.Set
}

// LogValue summarizes the resolved profile for structured logging.
func (p Profile) LogValue() slog.Value {
	q := p.QualitySpec()
	if q.Preset != resampler.QualityCustom {
		q = resampler.GetPresetSpec(q.Preset)
	}
	return slog.GroupValue(
		slog.Int("precision", q.Precision),
		slog.Float64("passband_end", q.PassbandEnd),
		slog.Float64("stopband_begin", q.StopbandBegin),
		slog.Float64("phase_response", q.PhaseResponse),
		slog.String("flags", formatHex(uint32(q.Flags))),
		slog.Float64("scale", p.Scale),
	)
}

func tierPreset(tier Recipe) resampler.QualityPreset {
	switch tier {
	case TierQuick:
		return resampler.QualityQuick
	case TierLow:
		return resampler.QualityLow
	case TierMedium:
		return resampler.QualityMedium
	case TierVeryHigh:
		return resampler.QualityVeryHigh
	default:
		return resampler.QualityHigh
	}
}

func phaseResponse(phase Recipe) float64 {
	switch phase {
	case IntermediatePhase:
		return intermediatePhaseResponse
	case MinimumPhase:
		return minimumPhaseResponse
	default:
		return linearPhaseResponse
	}
}

func phaseFlags(phase Recipe) resampler.QualityFlags {
	if phase == MinimumPhase {
		return resampler.FlagMinimumPhase
	}
	if phase == LinearPhase {
		return resampler.FlagLinearPhase
	}
	return 0
}
