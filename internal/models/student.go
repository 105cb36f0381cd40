package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	UID       string    `db:"uid" json:"uid"`
	FullName  string    `db:"full_name" json:"full_name"`
	CGPA      string    `db:"cgpa" json:"cgpa"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfile is the academic view the decision engine reads: the
// student row plus the flattened set of subjects completed across all
// recorded semesters. The engine never mutates it.
type StudentProfile struct {
	Student
	CompletedSubjects map[string]struct{} `json:"-"`
}

// HasCompleted reports membership in the completed-subject set using
// the normalized course key.
func (p *StudentProfile) HasCompleted(courseKey string) bool {
	if p == nil || p.CompletedSubjects == nil {
		return false
	}
	_, ok := p.CompletedSubjects[courseKey]
	return ok
}
