package cbc

import (
	"fmt"
	"time"
)

// Confidence levels attached to extracted values.
const (
	ConfidenceDirect    = 1.0
	ConfidenceCorrected = 0.8
	ConfidenceDerived   = 0.7
	ConfidenceLenient   = 0.5
)

// ExtractedValue is one canonical reading. Gender is encoded 0 (female) / 1 (male).
type ExtractedValue struct {
	Parameter  ParameterID `json:"parameter"`
	Value      float64     `json:"value"`
	Confidence float64     `json:"confidence,omitempty"`
	RawText    string      `json:"raw_text,omitempty"`
}

// Candidate is one attempt at extracting all parameters from a document.
type Candidate struct {
	Values          map[ParameterID]ExtractedValue `json:"values"`
	Method          string                         `json:"method"`
	Warnings        []string                       `json:"warnings,omitempty"`
	ParametersFound int                            `json:"parameters_found"`
	Completeness    float64                        `json:"completeness"`
	ExtractedAt     time.Time                      `json:"extracted_at"`
}

func NewCandidate(method string) *Candidate {
	return &Candidate{
		Values: make(map[ParameterID]ExtractedValue),
		Method: method,
	}
}

// Has reports whether id already holds a value.
func (c *Candidate) Has(id ParameterID) bool {
	_, ok := c.Values[id]
	return ok
}

// Add stores v unless the parameter is already present. First found wins.
func (c *Candidate) Add(v ExtractedValue) bool {
	if c.Has(v.Parameter) {
		return false
	}
	c.Values[v.Parameter] = v
	return true
}

// Replace overwrites the value of an existing or new parameter.
func (c *Candidate) Replace(v ExtractedValue) {
	c.Values[v.Parameter] = v
}

// Value returns the numeric value of id.
func (c *Candidate) Value(id ParameterID) (float64, bool) {
	v, ok := c.Values[id]
	return v.Value, ok
}

// Len is the number of parameters found. It doubles as the candidate score.
func (c *Candidate) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Values)
}

// Empty reports whether the candidate carries no parameters.
func (c *Candidate) Empty() bool {
	return c.Len() == 0
}

// Missing lists parameters without a value, in canonical order.
func (c *Candidate) Missing() []ParameterID {
	var missing []ParameterID
	for _, p := range catalog {
		if !c.Has(p.ID) {
			missing = append(missing, p.ID)
		}
	}
	return missing
}

// Warn records a non-fatal observation about the extraction.
func (c *Candidate) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	for _, w := range c.Warnings {
		if w == msg {
			return
		}
	}
	c.Warnings = append(c.Warnings, msg)
}

// Features is the feature-vector hand-off consumed by the classifier.
type Features struct {
	Values       map[ParameterID]float64 `json:"values"`
	Completeness float64                 `json:"completeness_percentage"`
	Missing      []ParameterID           `json:"missing_parameters"`
}

// Features returns the canonical feature mapping for c.
func (c *Candidate) Features() Features {
	f := Features{
		Values:       make(map[ParameterID]float64, len(c.Values)),
		Completeness: completeness(len(c.Values)),
		Missing:      c.Missing(),
	}
	for id, v := range c.Values {
		if _, known := byID[id]; known {
			f.Values[id] = v.Value
		}
	}
	if f.Missing == nil {
		f.Missing = []ParameterID{}
	}
	return f
}

func completeness(found int) float64 {
	return float64(found) / float64(len(catalog)) * 100
}

// ListingEntry identifies one patient row in a multi-record document.
type ListingEntry struct {
	RowIndex int    `json:"row_index"`
	Label    string `json:"label"`
}

// Listing is returned instead of a candidate when a document holds several records.
type Listing struct {
	Entries      []ListingEntry `json:"patients"`
	TotalRecords int            `json:"total_records"`
	Message      string         `json:"message"`
}
