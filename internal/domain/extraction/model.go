package extraction

import (
	"time"

	"github.com/google/uuid"

	"github.com/cbclab/cbclab/internal/domain/cbc"
)

// Outcomes of one Process call.
const (
	OutcomeCandidate = "candidate"
	OutcomeListing   = "listing"
	OutcomeFailure   = "failure"
)

// Options adjust a single extraction.
type Options struct {
	Row      *int   // zero-based record of a tabular document; skips listing
	Filename string // recorded in the extraction log only
}

// Result holds exactly one of Candidate, Listing and Failure.
type Result struct {
	Candidate *cbc.Candidate `json:"candidate,omitempty"`
	Listing   *cbc.Listing   `json:"listing,omitempty"`
	Failure   *cbc.Failure   `json:"failure,omitempty"`
	Kind      Kind           `json:"kind"`
	Duration  time.Duration  `json:"-"`
}

func (r Result) Outcome() string {
	switch {
	case r.Failure != nil:
		return OutcomeFailure
	case r.Listing != nil:
		return OutcomeListing
	default:
		return OutcomeCandidate
	}
}

func failed(f *cbc.Failure) Result { return Result{Failure: f} }

// Record maps to the extraction_log table, one row per Process call.
type Record struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Filename        *string   `db:"filename" json:"filename,omitempty"`
	Kind            string    `db:"kind" json:"kind"`
	Outcome         string    `db:"outcome" json:"outcome"`
	Method          *string   `db:"method" json:"method,omitempty"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	ParametersFound int       `db:"parameters_found" json:"parameters_found"`
	Completeness    float64   `db:"completeness" json:"completeness"`
	TotalRecords    int       `db:"total_records" json:"total_records"`
	Warnings        []string  `db:"warnings" json:"warnings,omitempty"`
	DurationMS      int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NewRecord summarizes res for the extraction log.
func NewRecord(res Result, filename string) *Record {
	rec := &Record{
		Kind:       string(res.Kind),
		Outcome:    res.Outcome(),
		DurationMS: res.Duration.Milliseconds(),
	}
	if filename != "" {
		rec.Filename = &filename
	}
	switch {
	case res.Failure != nil:
		reason := string(res.Failure.Reason)
		rec.Reason = &reason
	case res.Listing != nil:
		rec.TotalRecords = res.Listing.TotalRecords
	case res.Candidate != nil:
		method := res.Candidate.Method
		rec.Method = &method
		rec.ParametersFound = res.Candidate.ParametersFound
		rec.Completeness = res.Candidate.Completeness
		rec.Warnings = res.Candidate.Warnings
	}
	return rec
}
