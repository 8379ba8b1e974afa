package inbound

import (
	"net/http"

	"github.com/goliatone/go-payhooks/core"
)

// State is a step of the per-delivery state machine.
type State string

const (
	StateReceived           State = "RECEIVED"
	StateVerified           State = "VERIFIED"
	StateValidated          State = "VALIDATED"
	StateDuplicate          State = "DUPLICATE"
	StateApplied            State = "APPLIED"
	StateSideEffectsOK      State = "SIDE_EFFECTS_OK"
	StateSideEffectsPartial State = "SIDE_EFFECTS_PARTIAL"
	// StateSideEffectsDeferred marks side effects handed to a background runner.
	StateSideEffectsDeferred State = "SIDE_EFFECTS_DEFERRED"
	StateAcked               State = "ACKED"
)

const (
	OutcomeVerification   = "verification"
	OutcomeApplied        = "applied"
	OutcomeDuplicate      = "duplicate"
	OutcomeSkipped        = "skipped"
	OutcomeCancelled      = "cancelled"
	OutcomeUnchanged      = "unchanged"
	OutcomeOrderNotFound  = "order_not_found"
	OutcomeMissingOrderID = "missing_order_id"
	OutcomeUserNotFound   = "user_not_found"
	OutcomeRejected       = "rejected"
	OutcomeFailed         = "failed"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	WarningProcessedWithErrors = "processed_with_errors"
)

// ResponseBody is the JSON acknowledgement returned to the processor.
type ResponseBody struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result describes how one delivery was handled.
type Result struct {
	StatusCode int
	Body       ResponseBody
	Kind       core.EventKind
	OrderID    string
	ExternalID string
	Outcome    string
	// Trail lists every state entered, in order. The last entry is ACKED for
	// every 200 response.
	Trail   []State
	Summary core.SideEffectSummary

	amount int64
}

// State returns the last state entered.
func (r Result) State() State {
	if len(r.Trail) == 0 {
		return ""
	}
	return r.Trail[len(r.Trail)-1]
}

func (r Result) Entered(state State) bool {
	for _, entered := range r.Trail {
		if entered == state {
			return true
		}
	}
	return false
}

func (r Result) HasWarning() bool {
	return r.Body.Warning != ""
}

func (r *Result) enter(state State) {
	r.Trail = append(r.Trail, state)
}

func (r *Result) ack(warning bool) {
	r.enter(StateAcked)
	r.StatusCode = http.StatusOK
	r.Body = ResponseBody{Status: StatusOK}
	if warning {
		r.Body.Warning = WarningProcessedWithErrors
	}
}

func (r *Result) reject(statusCode int, textCode string) {
	r.StatusCode = statusCode
	r.Outcome = OutcomeRejected
	if statusCode >= http.StatusInternalServerError {
		r.Outcome = OutcomeFailed
	}
	r.Body = ResponseBody{Status: StatusError, Error: textCode}
}

// committed reports whether any ledger write may have happened.
func (r Result) committed() bool {
	return r.Entered(StateApplied)
}
