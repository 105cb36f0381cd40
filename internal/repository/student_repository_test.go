package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryFindProfileNormalizesSubjects(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	studentRows := sqlmock.NewRows([]string{"uid", "full_name", "cgpa", "active", "created_at", "updated_at"}).
		AddRow("stu-1", "Ada L", "8.5", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT uid, full_name, cgpa, active, created_at, updated_at FROM students WHERE uid = $1")).
		WithArgs("stu-1").
		WillReturnRows(studentRows)

	subjectRows := sqlmock.NewRows([]string{"subject_key"}).
		AddRow("  Linear   Algebra ").
		AddRow("calculus i")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT subject_key FROM student_subjects WHERE student_uid = $1")).
		WithArgs("stu-1").
		WillReturnRows(subjectRows)

	profile, err := repo.FindProfileByUID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "8.5", profile.CGPA)
	assert.True(t, profile.HasCompleted("linear algebra"))
	assert.True(t, profile.HasCompleted("calculus i"))
	assert.False(t, profile.HasCompleted("databases"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
