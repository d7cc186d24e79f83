package cbc

// Tuning holds the empirically chosen unit-correction thresholds and the
// differential rescale window. Instruments differ in default units, so
// deployments may override these.
type Tuning struct {
	// HemoglobinGLThreshold: HGB above this is read as g/L and divided by 10.
	HemoglobinGLThreshold float64
	// HematocritFractionMin/Max: HCT strictly inside this interval is a fraction.
	HematocritFractionMin float64
	HematocritFractionMax float64
	// AbsoluteCountThreshold: subtype counts above this with a thousands
	// marker in context are divided by 1000.
	AbsoluteCountThreshold float64
	// PercentageCeiling: percentages above this are divided by 100 when the
	// result stays below PercentageRejectAbove.
	PercentageCeiling     float64
	PercentageRejectAbove float64

	// RescaleTolerance is the allowed deviation of the differential sum from 100.
	RescaleTolerance float64
	// RescaleMin/Max bound the sums that are rescaled to 100.
	RescaleMin float64
	RescaleMax float64
}

// DefaultTuning returns the thresholds used when nothing is configured.
func DefaultTuning() Tuning {
	return Tuning{
		HemoglobinGLThreshold:  200,
		HematocritFractionMin:  1,
		HematocritFractionMax:  10,
		AbsoluteCountThreshold: 100,
		PercentageCeiling:      100,
		PercentageRejectAbove:  1000,
		RescaleTolerance:       10,
		RescaleMin:             85,
		RescaleMax:             115,
	}
}

func (t Tuning) orDefault() Tuning {
	if t == (Tuning{}) {
		return DefaultTuning()
	}
	return t
}
