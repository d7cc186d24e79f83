package cbc

// Accepts reports whether v lies inside the primary acceptance band of id:
// AbsoluteMin*0.5 <= v <= AbsoluteMax*2. Unknown parameters are unconstrained.
func Accepts(id ParameterID, v float64) bool {
	p, ok := byID[id]
	if !ok {
		return true
	}
	return v >= p.Range.AbsoluteMin*0.5 && v <= p.Range.AbsoluteMax*2
}

// AcceptsLenient is the extraction-time fallback band:
// AbsoluteMin*0.1 <= v <= AbsoluteMax*10. Callers treat a hit as low confidence.
func AcceptsLenient(id ParameterID, v float64) bool {
	p, ok := byID[id]
	if !ok {
		return true
	}
	return v >= p.Range.AbsoluteMin*0.1 && v <= p.Range.AbsoluteMax*10
}
