package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusd/admission-api/internal/models"
	"github.com/campusd/admission-api/internal/rules"
)

// StudentRepository reads student academic profiles. The admission
// engine never writes to these tables.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByUID returns the student row.
func (r *StudentRepository) FindByUID(ctx context.Context, uid string) (*models.Student, error) {
	const query = `SELECT uid, full_name, cgpa, active, created_at, updated_at FROM students WHERE uid = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, uid); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindProfileByUID returns the student together with the flattened set
// of completed subjects across all semester records.
func (r *StudentRepository) FindProfileByUID(ctx context.Context, uid string) (*models.StudentProfile, error) {
	student, err := r.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	const subjectsQuery = `SELECT DISTINCT subject_key FROM student_subjects WHERE student_uid = $1`
	var subjects []string
	if err := r.db.SelectContext(ctx, &subjects, subjectsQuery, uid); err != nil {
		return nil, fmt.Errorf("load completed subjects for %s: %w", uid, err)
	}

	completed := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		completed[rules.NormalizeCourse(s)] = struct{}{}
	}

	return &models.StudentProfile{Student: *student, CompletedSubjects: completed}, nil
}
