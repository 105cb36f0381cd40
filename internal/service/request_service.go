package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusd/admission-api/internal/models"
	"github.com/campusd/admission-api/internal/rules"
	appErrors "github.com/campusd/admission-api/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, request *models.EnrollmentRequest) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.EnrollmentRequest, int, error)
}

type studentReader interface {
	FindByUID(ctx context.Context, uid string) (*models.Student, error)
}

// SubmitEnrollmentRequest describes the intake payload.
type SubmitEnrollmentRequest struct {
	StudentUID string   `json:"student_uid" validate:"required"`
	Course     string   `json:"course" validate:"required"`
	PhotoURLs  []string `json:"photo_urls" validate:"omitempty,dive,url"`
}

// RequestService handles the intake and read side of enrollment
// requests; decisions belong to AdmissionService.
type RequestService struct {
	repo      requestRepository
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs RequestService.
func NewRequestService(repo requestRepository, students studentReader, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{repo: repo, students: students, validator: validate, logger: logger}
}

// Submit persists a new enrollment request in PENDING state.
func (s *RequestService) Submit(ctx context.Context, req SubmitEnrollmentRequest) (*models.EnrollmentRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment request payload")
	}

	student, err := s.students.FindByUID(ctx, req.StudentUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student inactive")
	}

	request := &models.EnrollmentRequest{
		StudentUID: req.StudentUID,
		Course:     req.Course,
		CourseKey:  rules.NormalizeCourse(req.Course),
		PhotoURLs:  pq.StringArray(req.PhotoURLs),
		Status:     models.RequestStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment request")
	}

	s.logger.Info("enrollment request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_uid", request.StudentUID),
		zap.String("course", request.CourseKey),
	)
	return request, nil
}

// Get returns one enrollment request.
func (s *RequestService) Get(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment request")
	}
	return request, nil
}

// List returns enrollment requests with pagination metadata.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.EnrollmentRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return requests, pagination, nil
}
