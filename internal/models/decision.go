package models

import "time"

// DecisionOutcome is the capacity coordinator's verdict for an
// eligible request.
type DecisionOutcome string

const (
	OutcomeAdmitted       DecisionOutcome = "ADMITTED"
	OutcomeAdmittedStrict DecisionOutcome = "ADMITTED_STRICT"
	OutcomeWaitlisted     DecisionOutcome = "WAITLISTED"
)

// DecisionResult is returned to the caller of the decide operation.
// Reason is rendered text for rejected outcomes; VerificationDetail
// carries the upstream failure detail when encoding failed.
type DecisionResult struct {
	RequestID          string        `json:"request_id"`
	StudentUID         string        `json:"student_uid"`
	Course             string        `json:"course"`
	Status             RequestStatus `json:"status"`
	StrictTier         bool          `json:"strict_tier,omitempty"`
	ReasonCode         *ReasonCode   `json:"reason_code,omitempty"`
	Reason             string        `json:"reason,omitempty"`
	VerificationDetail string        `json:"verification_detail,omitempty"`
	DecidedAt          time.Time     `json:"decided_at"`
}

// SetReason attaches the tagged reason and renders its text.
func (r *DecisionResult) SetReason(reason DecisionReason) {
	code := reason.Code
	r.ReasonCode = &code
	r.Reason = reason.Render()
}
