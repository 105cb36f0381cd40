package models

import "time"

// WaitlistEntry holds an eligible student who missed the strict-tier
// bar after capacity was exhausted.
type WaitlistEntry struct {
	ID         string    `db:"id" json:"id"`
	StudentUID string    `db:"student_uid" json:"student_uid"`
	CourseKey  string    `db:"course_key" json:"course_key"`
	CGPA       float64   `db:"cgpa" json:"cgpa"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
