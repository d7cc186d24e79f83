package cbc

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var (
	maleTokens   = map[string]bool{"male": true, "m": true, "1": true, "man": true, "boy": true}
	femaleTokens = map[string]bool{"female": true, "f": true, "0": true, "woman": true, "girl": true}
)

// thousandsMarkers indicate a count reported per microlitre rather than in 10^3/uL.
var thousandsMarkers = []string{"thou", "10³", "10^3", "k/"}

// Normalizer turns raw cell or token text into validated canonical values.
type Normalizer struct {
	tuning Tuning
	logger zerolog.Logger
}

func NewNormalizer(tuning Tuning, logger zerolog.Logger) *Normalizer {
	return &Normalizer{tuning: tuning.orDefault(), logger: logger}
}

// Normalize parses raw for id. context is the surrounding text used by the
// unit heuristics. A value rejected by the primary band gets one unit
// correction; failing that, the lenient band accepts it with low confidence.
func (n *Normalizer) Normalize(id ParameterID, raw, context string) (ExtractedValue, bool) {
	raw = strings.TrimSpace(raw)
	if id == Gender {
		g, ok := ParseGender(raw)
		if !ok {
			return ExtractedValue{}, false
		}
		return ExtractedValue{Parameter: id, Value: g, Confidence: ConfidenceDirect, RawText: raw}, true
	}

	v, ok := ParseNumeric(raw)
	if !ok {
		return ExtractedValue{}, false
	}
	if Accepts(id, v) {
		return ExtractedValue{Parameter: id, Value: v, Confidence: ConfidenceDirect, RawText: raw}, true
	}
	if cv, ok := n.correctUnits(id, v, context); ok && Accepts(id, cv) {
		n.logger.Debug().Str("param", string(id)).Float64("raw", v).Float64("value", cv).Msg("unit correction applied")
		return ExtractedValue{Parameter: id, Value: cv, Confidence: ConfidenceCorrected, RawText: raw}, true
	}
	if AcceptsLenient(id, v) {
		n.logger.Warn().Str("param", string(id)).Float64("value", v).Msg("value outside acceptance band, accepted with low confidence")
		return ExtractedValue{Parameter: id, Value: v, Confidence: ConfidenceLenient, RawText: raw}, true
	}
	n.logger.Debug().Str("param", string(id)).Float64("value", v).Msg("value rejected")
	return ExtractedValue{}, false
}

func (n *Normalizer) correctUnits(id ParameterID, v float64, context string) (float64, bool) {
	t := n.tuning
	switch {
	case id == HGB && v > t.HemoglobinGLThreshold:
		return v / 10, true
	case id == HCT && v > t.HematocritFractionMin && v < t.HematocritFractionMax:
		return v * 100, true
	case id.IsAbsoluteCount() && v > t.AbsoluteCountThreshold:
		ctx := strings.ToLower(context)
		for _, marker := range thousandsMarkers {
			if strings.Contains(ctx, marker) {
				return v / 1000, true
			}
		}
	case id.IsPercentage() && v > t.PercentageCeiling:
		if r := v / 100; r < t.PercentageRejectAbove {
			return r, true
		}
	}
	return 0, false
}

// ParseGender maps a gender token to 0 (female) or 1 (male).
func ParseGender(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case maleTokens[s]:
		return 1, true
	case femaleTokens[s]:
		return 0, true
	case strings.Contains(s, "female"):
		return 0, true
	case strings.Contains(s, "male"):
		return 1, true
	}
	return 0, false
}

// ParseNumeric keeps digits, the decimal point and sign characters from raw
// and parses the rest. It fails when no digit survives or parsing fails.
func ParseNumeric(raw string) (float64, bool) {
	var b strings.Builder
	digits := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits = true
			b.WriteRune(r)
		case r == '.' || r == '+' || r == '-':
			b.WriteRune(r)
		}
	}
	if !digits {
		return 0, false
	}
	s := b.String()
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
