package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusd/admission-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO enrollment_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.EnrollmentRequest{
		StudentUID: "stu-1",
		Course:     "Machine Learning",
		CourseKey:  "machine learning",
		PhotoURLs:  []string{"https://cdn.example/p1.jpg"},
	}
	require.NoError(t, repo.Create(context.Background(), request))
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.False(t, request.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_uid", "course", "course_key", "status", "reason_code", "reason_params", "encoding_status", "photo_urls", "created_at", "decided_at"}).
		AddRow("req-1", "stu-1", "Machine Learning", "machine learning", "PENDING", nil, nil, "", "{}", time.Now(), nil)
	mock.ExpectQuery("SELECT id, student_uid, course, course_key, status").
		WithArgs("req-1").
		WillReturnRows(rows)

	request, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", request.ID)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_uid", "course", "course_key", "status", "reason_code", "reason_params", "encoding_status", "photo_urls", "created_at", "decided_at"}).
		AddRow("req-1", "stu-1", "Machine Learning", "machine learning", "WAITLISTED", nil, nil, "", "{}", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_key = $1 AND status = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("machine learning", models.RequestStatusWaitlisted).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollment_requests WHERE course_key = $1 AND status = $2")).
		WithArgs("machine learning", models.RequestStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{
		CourseKey: "machine learning",
		Status:    models.RequestStatusWaitlisted,
	})
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_uid", "course", "course_key", "status", "reason_code", "reason_params", "encoding_status", "photo_urls", "created_at", "decided_at"})
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollment_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.RequestFilter{SortBy: "cgpa; DROP TABLE", SortOrder: "sideways"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryMarkRejected(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now().UTC()
	reason := models.DecisionReason{Code: models.ReasonCgpaBelowMinimum, MinCGPA: 7.0}

	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WithArgs("req-1", models.RequestStatusRejected, models.ReasonCgpaBelowMinimum, sqlmock.AnyArg(), now, models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRejected(context.Background(), "req-1", reason, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryMarkRejectedAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRejected(context.Background(), "req-1", models.DecisionReason{Code: models.ReasonPrerequisiteMissing}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotPending))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryMarkEncodingFailed(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE enrollment_requests SET status").
		WithArgs("req-1", models.RequestStatusEncodingFailed, models.EncodingStatusFailed, now, models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkEncodingFailed(context.Background(), "req-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
