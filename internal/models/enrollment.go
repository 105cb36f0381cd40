package models

import "time"

// EnrollmentRecord is created only when a request is approved and is
// immutable thereafter. The count of records per course key is the
// capacity counter; no cached counter column exists.
type EnrollmentRecord struct {
	ID         string    `db:"id" json:"id"`
	StudentUID string    `db:"student_uid" json:"student_uid"`
	CourseKey  string    `db:"course_key" json:"course_key"`
	CGPA       float64   `db:"cgpa" json:"cgpa"`
	StrictTier bool      `db:"strict_tier" json:"strict_tier"`
	ApprovedAt time.Time `db:"approved_at" json:"approved_at"`
}

// CapacitySnapshot is the read-model served by the capacity endpoint.
type CapacitySnapshot struct {
	Course     string  `json:"course"`
	SeatLimit  int     `json:"seat_limit"`
	Enrolled   int     `json:"enrolled"`
	StrictCGPA float64 `json:"strict_cgpa"`
	Full       bool    `json:"full"`
}
