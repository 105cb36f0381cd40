package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusd/admission-api/internal/models"
)

// ErrSerializationExhausted signals that the commit kept colliding with
// concurrent decisions for the same course and ran out of attempts.
var ErrSerializationExhausted = errors.New("decision commit retries exhausted")

// Postgres SQLSTATE codes that mark a transaction worth retrying.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// CommitInput carries everything the capacity commit needs.
type CommitInput struct {
	RequestID    string
	StudentUID   string
	CourseKey    string
	CGPA         float64
	Rule         models.AdmissionRule
	EncodingDone bool
}

// CommitResult reports the outcome of a committed decision.
type CommitResult struct {
	Outcome   models.DecisionOutcome
	Enrolled  int
	DecidedAt time.Time
}

// DecisionStore executes the read-count, decide, write sequence as a
// single serializable transaction per course. Serialization failures
// are retried with a fresh transaction and a fresh count, so two
// concurrent approvals can never both observe a free seat and both
// write past the limit.
type DecisionStore struct {
	db      *sqlx.DB
	retries int
	logger  *zap.Logger
	onRetry func()
}

// NewDecisionStore constructs the store. retries is the total number of
// commit attempts, minimum 1.
func NewDecisionStore(db *sqlx.DB, retries int, logger *zap.Logger) *DecisionStore {
	if retries < 1 {
		retries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionStore{db: db, retries: retries, logger: logger}
}

// SetRetryHook registers a callback invoked once per retried attempt.
func (s *DecisionStore) SetRetryHook(fn func()) {
	s.onRetry = fn
}

// Commit runs the capacity decision for an eligible request. It inserts
// an enrollment record or a waitlist entry and flips the request status
// in the same transaction; the request either fully transitions or
// stays PENDING.
func (s *DecisionStore) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		result, err := s.commitOnce(ctx, in)
		if err == nil {
			return result, nil
		}
		if !isRetryableTxError(err) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("decision commit conflict",
			zap.String("request_id", in.RequestID),
			zap.String("course", in.CourseKey),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if s.onRetry != nil {
			s.onRetry()
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrSerializationExhausted, lastErr)
}

func (s *DecisionStore) commitOnce(ctx context.Context, in CommitInput) (*CommitResult, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin decision tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var enrolled int
	if err := tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM enrollments WHERE course_key = $1`, in.CourseKey); err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}

	now := time.Now().UTC()
	outcome := decideOutcome(enrolled, in.CGPA, in.Rule)

	var status models.RequestStatus
	switch outcome {
	case models.OutcomeAdmitted, models.OutcomeAdmittedStrict:
		status = models.RequestStatusApproved
		const insert = `INSERT INTO enrollments (id, student_uid, course_key, cgpa, strict_tier, approved_at)
            VALUES ($1, $2, $3, $4, $5, $6)`
		strict := outcome == models.OutcomeAdmittedStrict
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), in.StudentUID, in.CourseKey, in.CGPA, strict, now); err != nil {
			return nil, fmt.Errorf("insert enrollment: %w", err)
		}
		enrolled++
	case models.OutcomeWaitlisted:
		status = models.RequestStatusWaitlisted
		const insert = `INSERT INTO waitlist_entries (id, student_uid, course_key, cgpa, created_at)
            VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), in.StudentUID, in.CourseKey, in.CGPA, now); err != nil {
			return nil, fmt.Errorf("insert waitlist entry: %w", err)
		}
	}

	encoding := ""
	if in.EncodingDone {
		encoding = string(models.EncodingStatusDone)
	}
	const update = `UPDATE enrollment_requests SET status = $2, encoding_status = $3, decided_at = $4
        WHERE id = $1 AND status = $5`
	res, err := tx.ExecContext(ctx, update, in.RequestID, status, encoding, now, models.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("transition request: %w", err)
	}
	if err := requireTransition(res); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit decision: %w", err)
	}

	return &CommitResult{Outcome: outcome, Enrolled: enrolled, DecidedAt: now}, nil
}

// decideOutcome implements the capacity bands: below the seat limit is
// a normal admission; at or past it the strict CGPA bar decides between
// the strict tier and the waitlist. A count exactly at the limit is
// already at capacity.
func decideOutcome(enrolled int, cgpa float64, rule models.AdmissionRule) models.DecisionOutcome {
	if enrolled < rule.SeatLimit {
		return models.OutcomeAdmitted
	}
	if cgpa >= rule.StrictCGPA {
		return models.OutcomeAdmittedStrict
	}
	return models.OutcomeWaitlisted
}

func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqSerializationFailure || string(pqErr.Code) == pqDeadlockDetected
	}
	return false
}
