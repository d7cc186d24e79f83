package extraction

import (
	"net/http"

	"github.com/cbclab/cbclab/internal/domain/cbc"
)

// CandidateResponse is the JSON body for a successful extraction.
type CandidateResponse struct {
	MultipleRecords bool           `json:"multiple_records"`
	Kind            Kind           `json:"kind"`
	Candidate       *cbc.Candidate `json:"candidate"`
	Features        cbc.Features   `json:"features"`
}

// ListingResponse is the JSON body when a document holds several records.
type ListingResponse struct {
	MultipleRecords bool `json:"multiple_records"`
	Kind            Kind `json:"kind"`
	*cbc.Listing
}

// FailureResponse is the JSON body for a structured failure.
type FailureResponse struct {
	Kind Kind `json:"kind"`
	*cbc.Failure
}

// StatusFor maps a failure reason to an HTTP status code.
func StatusFor(r cbc.Reason) int {
	switch r {
	case cbc.ReasonUnsupportedKind:
		return http.StatusUnsupportedMediaType
	case cbc.ReasonEngineUnavailable:
		return http.StatusServiceUnavailable
	case cbc.ReasonTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusUnprocessableEntity
}

// Render turns res into a status code and response body. With asFHIR the
// body is a Bundle or an OperationOutcome.
func Render(res Result, asFHIR bool) (int, interface{}) {
	switch {
	case res.Failure != nil:
		if asFHIR {
			return StatusFor(res.Failure.Reason), ToOperationOutcome(res.Failure)
		}
		return StatusFor(res.Failure.Reason), FailureResponse{Kind: res.Kind, Failure: res.Failure}
	case res.Listing != nil:
		if asFHIR {
			return http.StatusOK, ListingOutcome(res.Listing)
		}
		return http.StatusOK, ListingResponse{MultipleRecords: true, Kind: res.Kind, Listing: res.Listing}
	}
	if asFHIR {
		return http.StatusOK, ToBundle(res.Candidate)
	}
	return http.StatusOK, CandidateResponse{Kind: res.Kind, Candidate: res.Candidate, Features: res.Candidate.Features()}
}
