package cbc

import (
	"errors"
	"fmt"
)

// Reason classifies a structured extraction failure.
type Reason string

const (
	ReasonUnsupportedKind   Reason = "unsupported_file_kind"
	ReasonUnreadable        Reason = "unreadable_content"
	ReasonEngineUnavailable Reason = "engine_unavailable"
	ReasonRowOutOfRange     Reason = "row_out_of_range"
	ReasonNoParameters      Reason = "no_parameters_found"
	ReasonTimeout           Reason = "timeout"
)

// Failure is the structured failure returned by the extraction pipeline.
type Failure struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// Failf builds a Failure with a formatted message.
func Failf(reason Reason, format string, args ...interface{}) *Failure {
	return &Failure{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsFailure unwraps err into a Failure when one is present in its chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
