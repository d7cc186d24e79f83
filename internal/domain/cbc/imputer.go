package cbc

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Imputer cross-checks a winning candidate and derives missing parameters
// from related ones. Applying it twice yields the same candidate.
type Imputer struct {
	tuning Tuning
	logger zerolog.Logger
	now    func() time.Time
}

func NewImputer(tuning Tuning, logger zerolog.Logger) *Imputer {
	return &Imputer{tuning: tuning.orDefault(), logger: logger, now: time.Now}
}

// Apply back-fills percentages from absolute counts, rescales the
// differential, back-fills absolute counts from the rescaled percentages and
// derives the red-cell indices, then refreshes the candidate metadata.
// Every percentage is present before the rescale check, so a second pass
// sees the same sum.
func (im *Imputer) Apply(c *Candidate) {
	im.backfillPercentages(c)
	im.rescaleDifferential(c)
	im.backfillAbsolutes(c)
	im.deriveIndices(c)

	c.ParametersFound = c.Len()
	c.Completeness = completeness(c.ParametersFound)
	if c.ExtractedAt.IsZero() {
		c.ExtractedAt = im.now().UTC()
	}
}

func (im *Imputer) rescaleDifferential(c *Candidate) {
	var present []ParameterID
	sum := 0.0
	for _, id := range Percentages {
		if v, ok := c.Value(id); ok {
			present = append(present, id)
			sum += v
		}
	}
	if len(present) < 3 || math.Abs(sum-100) <= im.tuning.RescaleTolerance {
		return
	}
	if sum < im.tuning.RescaleMin || sum > im.tuning.RescaleMax {
		im.logger.Warn().Float64("sum", sum).Msg("differential percentages outside rescale window")
		c.Warn("differential percentages sum to %.1f%%, expected about 100%%", sum)
		return
	}

	factor := 100 / sum
	for _, id := range present {
		v := c.Values[id]
		v.Value = round(v.Value*factor, 1)
		c.Replace(v)
	}
	im.logger.Debug().Float64("sum", sum).Float64("factor", factor).Msg("differential percentages rescaled")
}

func (im *Imputer) backfillPercentages(c *Candidate) {
	wbc, ok := c.Value(WBC)
	if !ok || wbc <= 0 {
		return
	}
	for _, pair := range DifferentialPairs {
		pctID, absID := pair[0], pair[1]
		abs, hasAbs := c.Value(absID)
		if hasAbs && !c.Has(pctID) {
			im.derive(c, pctID, round(abs/wbc*100, 1))
		}
	}
}

func (im *Imputer) backfillAbsolutes(c *Candidate) {
	wbc, ok := c.Value(WBC)
	if !ok || wbc <= 0 {
		return
	}
	for _, pair := range DifferentialPairs {
		pctID, absID := pair[0], pair[1]
		pct, hasPct := c.Value(pctID)
		if hasPct && !c.Has(absID) {
			im.derive(c, absID, round(pct/100*wbc, 2))
		}
	}
}

func (im *Imputer) deriveIndices(c *Candidate) {
	rbc, okR := c.Value(RBC)
	hgb, okH := c.Value(HGB)
	hct, okC := c.Value(HCT)
	if !okR || !okH || !okC || rbc <= 0 || hct <= 0 {
		return
	}
	if !c.Has(MCV) {
		im.derive(c, MCV, round(hct/rbc*10, 1))
	}
	if !c.Has(MCH) {
		im.derive(c, MCH, round(hgb/rbc*10, 1))
	}
	if !c.Has(MCHC) {
		im.derive(c, MCHC, round(hgb/hct*100, 1))
	}
}

func (im *Imputer) derive(c *Candidate, id ParameterID, v float64) {
	if !Accepts(id, v) {
		im.logger.Debug().Str("param", string(id)).Float64("value", v).Msg("derived value rejected")
		return
	}
	c.Add(ExtractedValue{Parameter: id, Value: v, Confidence: ConfidenceDerived, RawText: "derived"})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
