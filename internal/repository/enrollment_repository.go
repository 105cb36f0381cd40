package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusd/admission-api/internal/models"
)

// EnrollmentRepository reads approved enrollment records. Writes happen
// only inside the decision transaction (see DecisionStore).
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CountByCourse returns the enrolled count for a course. This aggregate
// is the capacity counter; callers that decide on it must do so inside
// the decision transaction, not through this read.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseKey string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_key = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseKey); err != nil {
		return 0, fmt.Errorf("count enrollments for %s: %w", courseKey, err)
	}
	return count, nil
}

// ListByCourse returns approved enrollments for a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseKey string) ([]models.EnrollmentRecord, error) {
	const query = `SELECT id, student_uid, course_key, cgpa, strict_tier, approved_at FROM enrollments WHERE course_key = $1 ORDER BY approved_at`
	var records []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &records, query, courseKey); err != nil {
		return nil, fmt.Errorf("list enrollments for %s: %w", courseKey, err)
	}
	return records, nil
}

// ExistsForStudent reports whether the student already holds an
// enrollment record for the course.
func (r *EnrollmentRepository) ExistsForStudent(ctx context.Context, studentUID, courseKey string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_uid = $1 AND course_key = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentUID, courseKey); err != nil {
		return false, fmt.Errorf("check enrollment for %s/%s: %w", studentUID, courseKey, err)
	}
	return exists, nil
}
