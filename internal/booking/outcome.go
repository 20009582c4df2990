package booking

import (
	"encoding/json"
	"fmt"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRejected
	OutcomeExternalError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExternalError:
		return "external_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

func (k OutcomeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Codes for rejections that do not come from the validator.
const (
	CodeNoDrag            scheduling.ReasonCode = "no_drag_in_progress"
	CodeNotFound          scheduling.ReasonCode = "not_found"
	CodeInvalidTransition scheduling.ReasonCode = "invalid_status_transition"
	CodeWrongStep         scheduling.ReasonCode = "wrong_step"
	CodeMissingClient     scheduling.ReasonCode = "missing_client"
	CodeMissingService    scheduling.ReasonCode = "missing_service"
	CodeMissingDate       scheduling.ReasonCode = "missing_date"
)

// Outcome is the result of a mutation attempt. Callers switch on Kind.
type Outcome struct {
	Kind        OutcomeKind             `json:"kind"`
	Code        scheduling.ReasonCode   `json:"code,omitempty"`
	Reason      string                  `json:"reason,omitempty"`
	Appointment *scheduling.Appointment `json:"appointment,omitempty"`
	Err         error                   `json:"-"`
}

func succeeded(appt scheduling.Appointment) Outcome {
	return Outcome{Kind: OutcomeSuccess, Appointment: &appt}
}

func rejected(code scheduling.ReasonCode, reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Code: code, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeExternalError, Reason: err.Error(), Err: err}
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}
