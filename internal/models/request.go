package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// RequestStatus represents the lifecycle of an enrollment request.
type RequestStatus string

// Possible request statuses. A request is created PENDING and is moved
// exactly once by the decision engine to one of the other states.
const (
	RequestStatusPending        RequestStatus = "PENDING"
	RequestStatusApproved       RequestStatus = "APPROVED"
	RequestStatusRejected       RequestStatus = "REJECTED"
	RequestStatusWaitlisted     RequestStatus = "WAITLISTED"
	RequestStatusEncodingFailed RequestStatus = "ENCODING_FAILED"
)

// Terminal reports whether the status permits no further transition.
func (s RequestStatus) Terminal() bool {
	return s != "" && s != RequestStatusPending
}

// EncodingStatus mirrors the outcome of the face-encoding call.
type EncodingStatus string

const (
	EncodingStatusDone   EncodingStatus = "DONE"
	EncodingStatusFailed EncodingStatus = "FAILED"
)

// ReasonCode tags a rejection cause; the human-readable text is
// rendered at the API boundary, never inside the engine.
type ReasonCode string

const (
	ReasonPrerequisiteMissing ReasonCode = "PREREQUISITE_MISSING"
	ReasonCgpaBelowMinimum    ReasonCode = "CGPA_BELOW_MINIMUM"
)

// DecisionReason pairs a reason code with its parameters.
type DecisionReason struct {
	Code         ReasonCode `json:"code"`
	Prerequisite string     `json:"prerequisite,omitempty"`
	MinCGPA      float64    `json:"min_cgpa,omitempty"`
}

// Render produces the user-facing rejection text.
func (r DecisionReason) Render() string {
	switch r.Code {
	case ReasonPrerequisiteMissing:
		return "Prerequisite not completed"
	case ReasonCgpaBelowMinimum:
		return fmt.Sprintf("Minimum CGPA %.1f required", r.MinCGPA)
	default:
		return ""
	}
}

// EnrollmentRequest is a student's ask to join a course, persisted by
// the intake path and decided by the admission engine.
type EnrollmentRequest struct {
	ID             string         `db:"id" json:"id"`
	StudentUID     string         `db:"student_uid" json:"student_uid"`
	Course         string         `db:"course" json:"course"`
	CourseKey      string         `db:"course_key" json:"course_key"`
	Status         RequestStatus  `db:"status" json:"status"`
	ReasonCode     *ReasonCode    `db:"reason_code" json:"reason_code,omitempty"`
	ReasonParams   []byte         `db:"reason_params" json:"-"`
	EncodingStatus EncodingStatus `db:"encoding_status" json:"encoding_status,omitempty"`
	PhotoURLs      pq.StringArray `db:"photo_urls" json:"photo_urls"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	DecidedAt      *time.Time     `db:"decided_at" json:"decided_at,omitempty"`
}

// RequestFilter provides filters for listing enrollment requests.
type RequestFilter struct {
	StudentUID string
	CourseKey  string
	Status     RequestStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
