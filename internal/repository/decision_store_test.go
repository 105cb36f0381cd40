package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusd/admission-api/internal/models"
)

func newDecisionStoreMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func decisionInput() CommitInput {
	return CommitInput{
		RequestID:  "req-1",
		StudentUID: "stu-1",
		CourseKey:  "machine learning",
		CGPA:       7.5,
		Rule: models.AdmissionRule{
			CourseKey:  "machine learning",
			MinCGPA:    7.0,
			StrictCGPA: 8.0,
			SeatLimit:  2,
		},
		EncodingDone: true,
	}
}

func expectCount(mock sqlmock.Sqlmock, courseKey string, enrolled int) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_key = $1")).
		WithArgs(courseKey).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(enrolled))
}

func TestDecisionStoreCommitAdmits(t *testing.T) {
	db, mock, cleanup := newDecisionStoreMock(t)
	defer cleanup()
	store := NewDecisionStore(db, 3, nil)
	in := decisionInput()

	mock.ExpectBegin()
	expectCount(mock, in.CourseKey, 1)
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "stu-1", "machine learning", 7.5, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WithArgs("req-1", models.RequestStatusApproved, string(models.EncodingStatusDone), sqlmock.AnyArg(), models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAdmitted, result.Outcome)
	assert.Equal(t, 2, result.Enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionStoreCommitStrictTierAtCapacity(t *testing.T) {
	db, mock, cleanup := newDecisionStoreMock(t)
	defer cleanup()
	store := NewDecisionStore(db, 3, nil)
	in := decisionInput()
	in.CGPA = 8.0

	mock.ExpectBegin()
	expectCount(mock, in.CourseKey, in.Rule.SeatLimit)
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "stu-1", "machine learning", 8.0, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WithArgs("req-1", models.RequestStatusApproved, string(models.EncodingStatusDone), sqlmock.AnyArg(), models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAdmittedStrict, result.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionStoreCommitWaitlists(t *testing.T) {
	db, mock, cleanup := newDecisionStoreMock(t)
	defer cleanup()
	store := NewDecisionStore(db, 3, nil)
	in := decisionInput()
	in.EncodingDone = false

	mock.ExpectBegin()
	expectCount(mock, in.CourseKey, in.Rule.SeatLimit)
	mock.ExpectExec("INSERT INTO waitlist_entries").
		WithArgs(sqlmock.AnyArg(), "stu-1", "machine learning", 7.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WithArgs("req-1", models.RequestStatusWaitlisted, "", sqlmock.AnyArg(), models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWaitlisted, result.Outcome)
	assert.Equal(t, in.Rule.SeatLimit, result.Enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionStoreRetriesSerializationFailure(t *testing.T) {
	db, mock, cleanup := newDecisionStoreMock(t)
	defer cleanup()
	store := NewDecisionStore(db, 3, nil)
	retries := 0
	store.SetRetryHook(func() { retries++ })
	in := decisionInput()

	// First attempt collides at commit time, second one succeeds with a
	// fresh count.
	mock.ExpectBegin()
	expectCount(mock, in.CourseKey, 0)
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

	mock.ExpectBegin()
	expectCount(mock, in.CourseKey, 1)
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAdmitted, result.Outcome)
	assert.Equal(t, 1, retries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionStoreExhaustsRetries(t *testing.T) {
	db, mock, cleanup := newDecisionStoreMock(t)
	defer cleanup()
	store := NewDecisionStore(db, 2, nil)
	in := decisionInput()

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		expectCount(mock, in.CourseKey, 0).WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
	}

	_, err := store.Commit(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationExhausted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionStoreLostRaceNotRetried(t *testing.T) {
	db, mock, cleanup := newDecisionStoreMock(t)
	defer cleanup()
	store := NewDecisionStore(db, 3, nil)
	in := decisionInput()

	mock.ExpectBegin()
	expectCount(mock, in.CourseKey, 0)
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// Another decision already moved the request out of PENDING.
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.Commit(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotPending))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideOutcomeBands(t *testing.T) {
	rule := models.AdmissionRule{MinCGPA: 7.0, StrictCGPA: 8.0, SeatLimit: 80}

	assert.Equal(t, models.OutcomeAdmitted, decideOutcome(79, 7.0, rule))
	assert.Equal(t, models.OutcomeWaitlisted, decideOutcome(80, 7.9, rule))
	assert.Equal(t, models.OutcomeAdmittedStrict, decideOutcome(80, 8.0, rule))
	assert.Equal(t, models.OutcomeAdmittedStrict, decideOutcome(120, 9.1, rule))
}
