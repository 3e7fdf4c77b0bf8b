package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	resampler "github.com/tphakala/go-audio-resampler"
)

func TestParse_EmptyIsDefault(t *testing.T) {
	assert.Equal(t, Default(), Parse(""))
}

func TestDefault_IsHighQualityPreset(t *testing.T) {
	p := Default()
	assert.Equal(t, TierHigh, p.Recipe.Tier())
	assert.Equal(t, LinearPhase, p.Recipe.Phase())
	assert.InDelta(t, 1.0, p.Scale, 1e-12)
	assert.Equal(t, resampler.QualitySpec{Preset: resampler.QualityHigh}, p.QualitySpec())
}

// Each field parsed alone changes only its own property.
func TestParse_FieldIsolation(t *testing.T) {
	tests := []struct {
		name   string
		spec   string
		mutate func(p *Profile)
	}{
		{"recipe", "v", func(p *Profile) { p.Recipe = TierVeryHigh }},
		{"flags", ":1f", func(p *Profile) { p.Flags = 0x1f }},
		{"attenuation", "::6", func(p *Profile) { p.Scale = math.Pow(10, -6.0/20) }},
		{"precision", ":::20", func(p *Profile) { p.Precision = Override{20, true} }},
		{"passband", "::::90", func(p *Profile) { p.PassbandEnd = Override{0.9, true} }},
		{"stopband", ":::::95", func(p *Profile) { p.StopbandBegin = Override{0.95, true} }},
		{"phase", "::::::25", func(p *Profile) { p.PhaseResponse = Override{25, true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := Default()
			tt.mutate(&want)

			got := Parse(tt.spec)
			assert.Equal(t, want.Recipe, got.Recipe)
			assert.Equal(t, want.Flags, got.Flags)
			assert.InDelta(t, want.Scale, got.Scale, 1e-12)
			assert.Equal(t, want.Precision, got.Precision)
			assert.Equal(t, want.PassbandEnd.Set, got.PassbandEnd.Set)
			assert.InDelta(t, want.PassbandEnd.Value, got.PassbandEnd.Value, 1e-12)
			assert.Equal(t, want.StopbandBegin.Set, got.StopbandBegin.Set)
			assert.InDelta(t, want.StopbandBegin.Value, got.StopbandBegin.Value, 1e-12)
			assert.Equal(t, want.PhaseResponse, got.PhaseResponse)
		})
	}
}

func TestParse_AllFields(t *testing.T) {
	p := Parse("mIs:0x4:3:18:85:97:40")

	assert.Equal(t, TierMedium|IntermediatePhase|SteepFilter, p.Recipe)
	assert.Equal(t, uint32(0x4), p.Flags)
	assert.InDelta(t, math.Pow(10, -3.0/20), p.Scale, 1e-12)
	assert.Equal(t, Override{18, true}, p.Precision)
	assert.InDelta(t, 0.85, p.PassbandEnd.Value, 1e-12)
	assert.InDelta(t, 0.97, p.StopbandBegin.Value, 1e-12)
	assert.Equal(t, Override{40, true}, p.PhaseResponse)
}

func TestParse_ExtraFieldsIgnored(t *testing.T) {
	p := Parse("::::::25:99:100")
	assert.Equal(t, Override{25, true}, p.PhaseResponse)
}

func TestParseRecipe(t *testing.T) {
	tests := []struct {
		letters string
		want    Recipe
	}{
		{"", TierHigh},
		{"xyz", TierHigh},
		{"v", TierVeryHigh},
		{"l", TierLow},
		{"vq", TierQuick},
		{"qv", TierQuick}, // scan order, not string order
		{"hm", TierMedium},
		{"M", TierHigh | MinimumPhase},
		{"IM", TierHigh | MinimumPhase},
		{"LI", TierHigh | IntermediatePhase},
		{"vs", TierVeryHigh | SteepFilter},
	}

	for _, tt := range tests {
		t.Run(tt.letters, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRecipe(tt.letters))
		})
	}
}

func TestAttenuationScale(t *testing.T) {
	for _, db := range []float64{0, 0.5, 3, 6, 20, 96, 120, 300} {
		scale, ok := AttenuationScale(db)
		assert.True(t, ok, "dB=%v", db)
		assert.Greater(t, scale, 0.0)
		assert.LessOrEqual(t, scale, 1.0)
		assert.InDelta(t, math.Pow(10, -db/20), scale, 1e-15)
	}

	for _, db := range []float64{-0.1, -6, -40} {
		scale, ok := AttenuationScale(db)
		assert.False(t, ok, "dB=%v", db)
		assert.Greater(t, scale, 1.0)
	}
}

func TestParse_NegativeAttenuationKeepsDefaultScale(t *testing.T) {
	p := Parse("::-6")
	assert.InDelta(t, 1.0, p.Scale, 1e-12)
}

func TestClampRules(t *testing.T) {
	assert.Equal(t, 0.0, ClampPrecision(-3))
	assert.Equal(t, 0.0, ClampPrecision(0))
	assert.Equal(t, 24.0, ClampPrecision(24))

	assert.Equal(t, 0.0, ClampBand(-5))
	assert.InDelta(t, 0.913, ClampBand(91.3), 1e-12)

	assert.Equal(t, -1.0, ClampPhase(-7))
	assert.Equal(t, -1.0, ClampPhase(-1))
	assert.Equal(t, 50.0, ClampPhase(50))
}

func TestParse_ClampsInsteadOfRejecting(t *testing.T) {
	p := Parse(":::-4:-10:-20:-50")
	assert.Equal(t, Override{0, true}, p.Precision)
	assert.Equal(t, Override{0, true}, p.PassbandEnd)
	assert.Equal(t, Override{0, true}, p.StopbandBegin)
	assert.Equal(t, Override{-1, true}, p.PhaseResponse)
}

func TestParse_LenientNumbers(t *testing.T) {
	assert.Equal(t, uint32(0xab), Parse(":ABzz").Flags)
	assert.Equal(t, uint32(0), Parse(":zz").Flags)
	assert.Equal(t, Override{16, true}, Parse(":::16bits").Precision)
	// Unparsable attenuation reads as 0 dB, which is a valid unity scale.
	assert.InDelta(t, 1.0, Parse("::loud").Scale, 1e-12)
}

func TestQualitySpec_CustomFromPreset(t *testing.T) {
	q := Parse(":::20").QualitySpec()
	base := resampler.GetPresetSpec(resampler.QualityHigh)

	assert.Equal(t, resampler.QualityCustom, q.Preset)
	assert.Equal(t, 20, q.Precision)
	assert.InDelta(t, base.PassbandEnd, q.PassbandEnd, 1e-12)
	assert.InDelta(t, base.StopbandBegin, q.StopbandBegin, 1e-12)
	assert.InDelta(t, 50.0, q.PhaseResponse, 1e-12)
	require.NoError(t, q.Validate())
}

func TestQualitySpec_PhaseAndSteep(t *testing.T) {
	q := Parse("vMs").QualitySpec()
	base := resampler.GetPresetSpec(resampler.QualityVeryHigh)

	assert.Equal(t, resampler.QualityCustom, q.Preset)
	assert.InDelta(t, 0.0, q.PhaseResponse, 1e-12)
	assert.NotZero(t, q.Flags&resampler.FlagMinimumPhase)
	assert.Greater(t, q.PassbandEnd, base.PassbandEnd)
	assert.Less(t, q.PassbandEnd, q.StopbandBegin)
	require.NoError(t, q.Validate())

	q = Parse("I").QualitySpec()
	assert.InDelta(t, 25.0, q.PhaseResponse, 1e-12)
}

func TestQualitySpec_BareTierUsesPreset(t *testing.T) {
	assert.Equal(t, resampler.QualitySpec{Preset: resampler.QualityQuick}, Parse("q").QualitySpec())
	assert.Equal(t, resampler.QualitySpec{Preset: resampler.QualityLow}, Parse("l").QualitySpec())
	assert.Equal(t, resampler.QualitySpec{Preset: resampler.QualityMedium}, Parse("m").QualitySpec())
}

func TestQualitySpec_ClampedValuesFailValidation(t *testing.T) {
	// Clamping keeps the value in range of the option grammar, not of the
	// resampler; creation must then fail.
	q := Parse(":::-4").QualitySpec()
	assert.Error(t, q.Validate())

	q = Parse("::::::-9").QualitySpec()
	assert.Error(t, q.Validate())
}

func TestProfile_LogValue(t *testing.T) {
	v := Parse("hM:1").LogValue()
	attrs := v.Group()
	require.NotEmpty(t, attrs)

	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	assert.Contains(t, keys, "precision")
	assert.Contains(t, keys, "scale")
}
