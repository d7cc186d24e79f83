package fhir

import "time"

// Code systems used by laboratory observations.
const (
	LOINCSystem          = "http://loinc.org"
	UCUMSystem           = "http://unitsofmeasure.org"
	CategorySystem       = "http://terminology.hl7.org/CodeSystem/observation-category"
	InterpretationSystem = "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation"
)

// Observation is the subset of the R4 Observation resource used for lab results.
type Observation struct {
	ResourceType         string                      `json:"resourceType"`
	ID                   string                      `json:"id"`
	Meta                 *Meta                       `json:"meta,omitempty"`
	Status               string                      `json:"status"`
	Category             []CodeableConcept           `json:"category,omitempty"`
	Code                 CodeableConcept             `json:"code"`
	Subject              *Reference                  `json:"subject,omitempty"`
	Issued               *time.Time                  `json:"issued,omitempty"`
	ValueQuantity        *Quantity                   `json:"valueQuantity,omitempty"`
	ValueCodeableConcept *CodeableConcept            `json:"valueCodeableConcept,omitempty"`
	Interpretation       []CodeableConcept           `json:"interpretation,omitempty"`
	Method               *CodeableConcept            `json:"method,omitempty"`
	Note                 []Annotation                `json:"note,omitempty"`
	ReferenceRange       []ObservationReferenceRange `json:"referenceRange,omitempty"`
}

type ObservationReferenceRange struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
	Text string    `json:"text,omitempty"`
}

func NewObservation(id string) *Observation {
	return &Observation{ResourceType: "Observation", ID: id, Status: "preliminary"}
}

// LaboratoryCategory is the observation-category coding for lab results.
func LaboratoryCategory() CodeableConcept {
	return CodeableConcept{Coding: []Coding{{System: CategorySystem, Code: "laboratory", Display: "Laboratory"}}}
}

// LOINCConcept codes a concept in LOINC.
func LOINCConcept(code, display string) CodeableConcept {
	return CodeableConcept{Coding: []Coding{{System: LOINCSystem, Code: code, Display: display}}, Text: display}
}

// UCUMQuantity builds a quantity whose unit is a UCUM code.
func UCUMQuantity(value float64, unit string) *Quantity {
	return &Quantity{Value: value, Unit: unit, System: UCUMSystem, Code: unit}
}

// Interpret flags value against [low, high] as L, H or N. A zero-width
// range yields nil.
func Interpret(value, low, high float64) *CodeableConcept {
	if high <= low {
		return nil
	}
	code, display := "N", "Normal"
	switch {
	case value < low:
		code, display = "L", "Low"
	case value > high:
		code, display = "H", "High"
	}
	return &CodeableConcept{Coding: []Coding{{System: InterpretationSystem, Code: code, Display: display}}}
}
