package models

// AdmissionRule captures the per-course admission policy.
//
// Prerequisite is empty when the course has none. StrictCGPA is the
// higher bar that still admits a student once the seat limit is
// reached; it is always >= MinCGPA.
type AdmissionRule struct {
	CourseKey    string  `db:"course_key" json:"course_key"`
	Prerequisite string  `db:"prerequisite" json:"prerequisite,omitempty"`
	MinCGPA      float64 `db:"min_cgpa" json:"min_cgpa"`
	StrictCGPA   float64 `db:"strict_cgpa" json:"strict_cgpa"`
	SeatLimit    int     `db:"seat_limit" json:"seat_limit"`
}

// HasPrerequisite reports whether the rule demands a completed course.
func (r AdmissionRule) HasPrerequisite() bool {
	return r.Prerequisite != ""
}
