package extraction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/fhir"
)

const administrativeGenderSystem = "http://hl7.org/fhir/administrative-gender"

// ToBundle renders a candidate as a collection Bundle of laboratory
// Observations, one per extracted parameter in catalog order.
func ToBundle(c *cbc.Candidate) *fhir.Bundle {
	var resources []interface{}
	for _, p := range cbc.Parameters() {
		v, ok := c.Values[p.ID]
		if !ok {
			continue
		}
		resources = append(resources, observation(p, v, c.ExtractedAt))
	}
	return fhir.NewCollectionBundle(uuid.New().String(), resources)
}

func observation(p cbc.Parameter, v cbc.ExtractedValue, issued time.Time) *fhir.Observation {
	obs := fhir.NewObservation(uuid.New().String())
	if !issued.IsZero() {
		obs.Issued = &issued
	}
	obs.Category = []fhir.CodeableConcept{fhir.LaboratoryCategory()}
	obs.Code = fhir.LOINCConcept(p.LOINC, p.Display)

	switch p.ID {
	case cbc.Gender:
		code, display := "female", "Female"
		if v.Value >= 0.5 {
			code, display = "male", "Male"
		}
		obs.ValueCodeableConcept = &fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: administrativeGenderSystem, Code: code, Display: display}},
			Text:   display,
		}
	case cbc.Age:
		obs.ValueQuantity = fhir.UCUMQuantity(v.Value, p.Range.Unit)
	default:
		obs.ValueQuantity = fhir.UCUMQuantity(v.Value, p.Range.Unit)
		obs.ReferenceRange = []fhir.ObservationReferenceRange{{
			Low:  fhir.UCUMQuantity(p.Range.NormalLow, p.Range.Unit),
			High: fhir.UCUMQuantity(p.Range.NormalHigh, p.Range.Unit),
		}}
		if interp := fhir.Interpret(v.Value, p.Range.NormalLow, p.Range.NormalHigh); interp != nil {
			obs.Interpretation = []fhir.CodeableConcept{*interp}
		}
	}

	if v.Confidence > 0 && v.Confidence < cbc.ConfidenceDirect {
		obs.Note = append(obs.Note, fhir.Annotation{Text: fmt.Sprintf("confidence %.1f", v.Confidence)})
	}
	if v.RawText != "" {
		obs.Note = append(obs.Note, fhir.Annotation{Text: "source: " + v.RawText})
	}
	return obs
}

// ToOperationOutcome renders a failure. The reason code travels in the
// issue details so clients can branch on it.
func ToOperationOutcome(f *cbc.Failure) *fhir.OperationOutcome {
	return fhir.NewOutcomeBuilder().
		AddIssueWithDetails(fhir.IssueSeverityError, issueType(f.Reason), f.Message,
			&fhir.CodeableConcept{Text: string(f.Reason)}).
		Build()
}

// ListingOutcome reports a multi-record document in FHIR form; the caller
// must repeat the request with a row selector.
func ListingOutcome(l *cbc.Listing) *fhir.OperationOutcome {
	b := fhir.NewOutcomeBuilder().AddIssue(fhir.IssueSeverityInformation, fhir.IssueTypeInformational, l.Message)
	for _, e := range l.Entries {
		b.AddIssue(fhir.IssueSeverityInformation, fhir.IssueTypeInformational, fmt.Sprintf("row %d: %s", e.RowIndex, e.Label))
	}
	return b.Build()
}

func issueType(r cbc.Reason) string {
	switch r {
	case cbc.ReasonUnsupportedKind:
		return fhir.IssueTypeNotSupported
	case cbc.ReasonUnreadable:
		return fhir.IssueTypeStructure
	case cbc.ReasonEngineUnavailable:
		return fhir.IssueTypeException
	case cbc.ReasonRowOutOfRange:
		return fhir.IssueTypeValue
	case cbc.ReasonNoParameters:
		return fhir.IssueTypeNotFound
	case cbc.ReasonTimeout:
		return fhir.IssueTypeTimeout
	}
	return fhir.IssueTypeProcessing
}
