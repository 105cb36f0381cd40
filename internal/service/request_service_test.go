package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusd/admission-api/internal/models"
	appErrors "github.com/campusd/admission-api/pkg/errors"
)

type mockRequestRepo struct {
	created    []*models.EnrollmentRequest
	items      map[string]*models.EnrollmentRequest
	listResult []models.EnrollmentRequest
	listTotal  int
	listErr    error
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	request.ID = "generated"
	m.created = append(m.created, request)
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	if req, ok := m.items[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.EnrollmentRequest, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByUID(ctx context.Context, uid string) (*models.Student, error) {
	if s, ok := m.students[uid]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newRequestService(repo *mockRequestRepo, students *mockStudentReader) *RequestService {
	return NewRequestService(repo, students, nil, zap.NewNop())
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	repo := &mockRequestRepo{}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {UID: "stu-1", Active: true, CGPA: "7.5"},
	}}
	svc := newRequestService(repo, students)

	request, err := svc.Submit(context.Background(), SubmitEnrollmentRequest{
		StudentUID: "stu-1",
		Course:     "  Machine   Learning ",
		PhotoURLs:  []string{"https://cdn.example/p1.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, "machine learning", request.CourseKey)
	assert.Equal(t, "  Machine   Learning ", request.Course)
	require.Len(t, repo.created, 1)
}

func TestSubmitValidation(t *testing.T) {
	svc := newRequestService(&mockRequestRepo{}, &mockStudentReader{})

	_, err := svc.Submit(context.Background(), SubmitEnrollmentRequest{Course: "algorithms"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Submit(context.Background(), SubmitEnrollmentRequest{StudentUID: "stu-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitUnknownStudent(t *testing.T) {
	svc := newRequestService(&mockRequestRepo{}, &mockStudentReader{})

	_, err := svc.Submit(context.Background(), SubmitEnrollmentRequest{StudentUID: "ghost", Course: "algorithms"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmitInactiveStudent(t *testing.T) {
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {UID: "stu-1", Active: false},
	}}
	svc := newRequestService(&mockRequestRepo{}, students)

	_, err := svc.Submit(context.Background(), SubmitEnrollmentRequest{StudentUID: "stu-1", Course: "algorithms"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListDefaultsPagination(t *testing.T) {
	repo := &mockRequestRepo{
		listResult: []models.EnrollmentRequest{{ID: "req-1"}},
		listTotal:  41,
	}
	svc := newRequestService(repo, &mockStudentReader{})

	requests, pagination, err := svc.List(context.Background(), models.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestGetUnknownRequest(t *testing.T) {
	svc := newRequestService(&mockRequestRepo{}, &mockStudentReader{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
