package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusd/admission-api/internal/models"
)

// RuleRepository loads the configured admission rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository constructs the repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// LoadAll returns every configured admission rule. Courses without a
// row fall back to the catalog default at resolve time.
func (r *RuleRepository) LoadAll(ctx context.Context) ([]models.AdmissionRule, error) {
	const query = `SELECT course_key, prerequisite, min_cgpa, strict_cgpa, seat_limit FROM admission_rules`
	var entries []models.AdmissionRule
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("load admission rules: %w", err)
	}
	return entries, nil
}
