package extraction

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/fhir"
)

func sampleCandidate() *cbc.Candidate {
	c := cbc.NewCandidate(MethodLineScan)
	c.Add(cbc.ExtractedValue{Parameter: cbc.Gender, Value: 1, Confidence: cbc.ConfidenceDirect, RawText: "male"})
	c.Add(cbc.ExtractedValue{Parameter: cbc.HGB, Value: 10.5, Confidence: cbc.ConfidenceCorrected, RawText: "105"})
	c.Add(cbc.ExtractedValue{Parameter: cbc.Age, Value: 45, Confidence: cbc.ConfidenceDirect})
	c.ParametersFound = 3
	c.ExtractedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return c
}

func decodeObservations(t *testing.T, b *fhir.Bundle) []fhir.Observation {
	t.Helper()
	out := make([]fhir.Observation, len(b.Entry))
	for i, e := range b.Entry {
		if err := json.Unmarshal(e.Resource, &out[i]); err != nil {
			t.Fatalf("decode entry %d: %v", i, err)
		}
	}
	return out
}

func TestToBundle(t *testing.T) {
	b := ToBundle(sampleCandidate())
	if b.ResourceType != "Bundle" || b.Type != "collection" {
		t.Fatalf("unexpected bundle %s/%s", b.ResourceType, b.Type)
	}
	obs := decodeObservations(t, b)
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}

	// catalog order: HGB, Age, Gender
	hgb, age, gender := obs[0], obs[1], obs[2]
	if hgb.Code.Coding[0].Code != "718-7" || hgb.Code.Coding[0].System != fhir.LOINCSystem {
		t.Errorf("unexpected HGB code %+v", hgb.Code)
	}
	if hgb.ValueQuantity == nil || hgb.ValueQuantity.Value != 10.5 || hgb.ValueQuantity.Code != "g/dL" {
		t.Errorf("unexpected HGB quantity %+v", hgb.ValueQuantity)
	}
	if len(hgb.Interpretation) != 1 || hgb.Interpretation[0].Coding[0].Code != "L" {
		t.Errorf("expected low interpretation, got %+v", hgb.Interpretation)
	}
	if len(hgb.ReferenceRange) != 1 || hgb.ReferenceRange[0].Low.Value != 12 {
		t.Errorf("unexpected reference range %+v", hgb.ReferenceRange)
	}
	if len(hgb.Note) != 2 || hgb.Note[0].Text != "confidence 0.8" {
		t.Errorf("unexpected notes %+v", hgb.Note)
	}
	if hgb.Issued == nil || !hgb.Issued.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected issued %v", hgb.Issued)
	}

	if age.ValueQuantity == nil || age.ValueQuantity.Value != 45 || age.ReferenceRange != nil {
		t.Errorf("unexpected age observation %+v", age)
	}
	if gender.ValueCodeableConcept == nil || gender.ValueCodeableConcept.Coding[0].Code != "male" {
		t.Errorf("unexpected gender observation %+v", gender.ValueCodeableConcept)
	}
	if gender.ValueQuantity != nil {
		t.Error("gender must not carry a quantity")
	}
}

func TestToOperationOutcome(t *testing.T) {
	tests := []struct {
		reason    cbc.Reason
		issueType string
	}{
		{cbc.ReasonUnsupportedKind, fhir.IssueTypeNotSupported},
		{cbc.ReasonUnreadable, fhir.IssueTypeStructure},
		{cbc.ReasonEngineUnavailable, fhir.IssueTypeException},
		{cbc.ReasonRowOutOfRange, fhir.IssueTypeValue},
		{cbc.ReasonNoParameters, fhir.IssueTypeNotFound},
		{cbc.ReasonTimeout, fhir.IssueTypeTimeout},
	}
	for _, tt := range tests {
		o := ToOperationOutcome(cbc.Failf(tt.reason, "msg"))
		if len(o.Issue) != 1 {
			t.Fatalf("%s: expected 1 issue, got %d", tt.reason, len(o.Issue))
		}
		issue := o.Issue[0]
		if issue.Code != tt.issueType || issue.Severity != fhir.IssueSeverityError {
			t.Errorf("%s: got %s/%s", tt.reason, issue.Severity, issue.Code)
		}
		if issue.Details == nil || issue.Details.Text != string(tt.reason) {
			t.Errorf("%s: expected reason in details, got %+v", tt.reason, issue.Details)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		reason cbc.Reason
		want   int
	}{
		{cbc.ReasonUnsupportedKind, http.StatusUnsupportedMediaType},
		{cbc.ReasonUnreadable, http.StatusUnprocessableEntity},
		{cbc.ReasonEngineUnavailable, http.StatusServiceUnavailable},
		{cbc.ReasonRowOutOfRange, http.StatusUnprocessableEntity},
		{cbc.ReasonNoParameters, http.StatusUnprocessableEntity},
		{cbc.ReasonTimeout, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.reason); got != tt.want {
			t.Errorf("StatusFor(%s) = %d, want %d", tt.reason, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	listing := &cbc.Listing{
		Entries:      []cbc.ListingEntry{{RowIndex: 0, Label: "Patient A (Row 1)"}, {RowIndex: 1, Label: "Patient B (Row 2)"}},
		TotalRecords: 2,
		Message:      "Found 2 records.",
	}

	status, body := Render(Result{Listing: listing, Kind: KindCSV}, false)
	lr, ok := body.(ListingResponse)
	if status != http.StatusOK || !ok || !lr.MultipleRecords {
		t.Errorf("unexpected listing render %d %#v", status, body)
	}

	status, body = Render(Result{Listing: listing, Kind: KindCSV}, true)
	oo, ok := body.(*fhir.OperationOutcome)
	if status != http.StatusOK || !ok || len(oo.Issue) != 3 {
		t.Errorf("unexpected FHIR listing render %d %#v", status, body)
	}

	status, body = Render(Result{Candidate: sampleCandidate(), Kind: KindTXT}, false)
	cr, ok := body.(CandidateResponse)
	if status != http.StatusOK || !ok || cr.MultipleRecords || cr.Features.Values[cbc.HGB] != 10.5 {
		t.Errorf("unexpected candidate render %d %#v", status, body)
	}

	status, body = Render(Result{Failure: cbc.Failf(cbc.ReasonTimeout, "slow")}, false)
	if _, ok := body.(FailureResponse); status != http.StatusGatewayTimeout || !ok {
		t.Errorf("unexpected failure render %d %#v", status, body)
	}
}
