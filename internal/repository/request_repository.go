package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusd/admission-api/internal/models"
)

// ErrRequestNotPending signals that a conditional transition found the
// request already outside PENDING.
var ErrRequestNotPending = errors.New("enrollment request is not pending")

// RequestRepository handles persistence of enrollment requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create persists a new enrollment request in PENDING state.
func (r *RequestRepository) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	const query = `INSERT INTO enrollment_requests (id, student_uid, course, course_key, status, photo_urls, created_at)
        VALUES (:id, :student_uid, :course, :course_key, :status, :photo_urls, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create enrollment request: %w", err)
	}
	return nil
}

// FindByID returns an enrollment request by its ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	const query = `SELECT id, student_uid, course, course_key, status, reason_code, reason_params, encoding_status, photo_urls, created_at, decided_at
        FROM enrollment_requests WHERE id = $1`
	var request models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns enrollment requests filtered by the provided criteria.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.EnrollmentRequest, int, error) {
	base := `FROM enrollment_requests`
	var conditions []string
	var args []interface{}

	if filter.StudentUID != "" {
		conditions = append(conditions, fmt.Sprintf("student_uid = $%d", len(args)+1))
		args = append(args, filter.StudentUID)
	}
	if filter.CourseKey != "" {
		conditions = append(conditions, fmt.Sprintf("course_key = $%d", len(args)+1))
		args = append(args, filter.CourseKey)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"decided_at": "decided_at",
		"status":     "status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_uid, course, course_key, status, reason_code, reason_params, encoding_status, photo_urls, created_at, decided_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var requests []models.EnrollmentRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment requests: %w", err)
	}
	return requests, total, nil
}

// MarkRejected transitions a pending request to REJECTED carrying the
// tagged reason. Returns ErrRequestNotPending when the request already
// left PENDING.
func (r *RequestRepository) MarkRejected(ctx context.Context, id string, reason models.DecisionReason, decidedAt time.Time) error {
	params, err := json.Marshal(reason)
	if err != nil {
		return fmt.Errorf("marshal rejection reason: %w", err)
	}
	const query = `UPDATE enrollment_requests SET status = $2, reason_code = $3, reason_params = $4, decided_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.RequestStatusRejected, reason.Code, params, decidedAt, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("reject enrollment request: %w", err)
	}
	return requireTransition(res)
}

// MarkEncodingFailed transitions a pending request to ENCODING_FAILED
// after a verification failure. No side records are written.
func (r *RequestRepository) MarkEncodingFailed(ctx context.Context, id string, decidedAt time.Time) error {
	const query = `UPDATE enrollment_requests SET status = $2, encoding_status = $3, decided_at = $4
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.RequestStatusEncodingFailed, models.EncodingStatusFailed, decidedAt, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("mark encoding failed: %w", err)
	}
	return requireTransition(res)
}

func requireTransition(res interface{ RowsAffected() (int64, error) }) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrRequestNotPending
	}
	return nil
}
