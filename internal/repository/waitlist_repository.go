package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusd/admission-api/internal/models"
)

// WaitlistRepository reads waitlist entries. Writes happen only inside
// the decision transaction.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// ListByCourse returns waitlist entries for a course in arrival order.
func (r *WaitlistRepository) ListByCourse(ctx context.Context, courseKey string) ([]models.WaitlistEntry, error) {
	const query = `SELECT id, student_uid, course_key, cgpa, created_at FROM waitlist_entries WHERE course_key = $1 ORDER BY created_at`
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, courseKey); err != nil {
		return nil, fmt.Errorf("list waitlist for %s: %w", courseKey, err)
	}
	return entries, nil
}
