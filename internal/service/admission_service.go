package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campusd/admission-api/internal/models"
	"github.com/campusd/admission-api/internal/repository"
	"github.com/campusd/admission-api/internal/verification"
	appErrors "github.com/campusd/admission-api/pkg/errors"
)

type decisionRequestStore interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	MarkRejected(ctx context.Context, id string, reason models.DecisionReason, decidedAt time.Time) error
	MarkEncodingFailed(ctx context.Context, id string, decidedAt time.Time) error
}

type profileReader interface {
	FindProfileByUID(ctx context.Context, uid string) (*models.StudentProfile, error)
}

type enrollmentCounter interface {
	CountByCourse(ctx context.Context, courseKey string) (int, error)
}

type decisionCommitter interface {
	Commit(ctx context.Context, in repository.CommitInput) (*repository.CommitResult, error)
}

// RuleResolver maps a course to its admission rule; lookups never fail.
type RuleResolver interface {
	Resolve(course string) models.AdmissionRule
}

type faceVerifier interface {
	Verify(ctx context.Context, studentUID string, photoURLs []string, course string) (*verification.Result, error)
}

type capacityInvalidator interface {
	Invalidate(ctx context.Context, courseKey string)
}

// AdmissionService owns the enrollment-request state machine: it runs
// the eligibility evaluation, the capacity decision and, when enabled,
// the verification gate, committing exactly one transition per request.
type AdmissionService struct {
	requests            decisionRequestStore
	students            profileReader
	enrollments         enrollmentCounter
	store               decisionCommitter
	resolver            RuleResolver
	verifier            faceVerifier
	capacity            capacityInvalidator
	metrics             *MetricsService
	logger              *zap.Logger
	requireVerification bool
}

// NewAdmissionService constructs the decision engine.
func NewAdmissionService(
	requests decisionRequestStore,
	students profileReader,
	enrollments enrollmentCounter,
	store decisionCommitter,
	resolver RuleResolver,
	verifier faceVerifier,
	capacity capacityInvalidator,
	metrics *MetricsService,
	logger *zap.Logger,
	requireVerification bool,
) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		requests:            requests,
		students:            students,
		enrollments:         enrollments,
		store:               store,
		resolver:            resolver,
		verifier:            verifier,
		capacity:            capacity,
		metrics:             metrics,
		logger:              logger,
		requireVerification: requireVerification,
	}
}

// Decide evaluates a pending enrollment request and commits its
// terminal state. Rejections, waitlisting and encoding failures are
// normal outcomes returned in the result; only missing records,
// repeated decisions and exhausted conflicts surface as errors.
func (s *AdmissionService) Decide(ctx context.Context, requestID string) (*models.DecisionResult, error) {
	if requestID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id is required")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment request")
	}
	if request.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "")
	}

	profile, err := s.students.FindProfileByUID(ctx, request.StudentUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	rule := s.resolver.Resolve(request.Course)

	result := &models.DecisionResult{
		RequestID:  request.ID,
		StudentUID: request.StudentUID,
		Course:     request.Course,
	}

	switch EvaluateEligibility(profile, rule) {
	case VerdictPrerequisiteMissing:
		return s.reject(ctx, request, result, models.DecisionReason{
			Code:         models.ReasonPrerequisiteMissing,
			Prerequisite: rule.Prerequisite,
		})
	case VerdictCgpaBelowMinimum:
		return s.reject(ctx, request, result, models.DecisionReason{
			Code:    models.ReasonCgpaBelowMinimum,
			MinCGPA: rule.MinCGPA,
		})
	}

	cgpa, _ := ParseCGPA(profile.CGPA)

	encodingDone := false
	if s.requireVerification {
		gated, err := s.approvalPossible(ctx, rule, cgpa)
		if err != nil {
			return nil, err
		}
		if gated {
			verified, detail, err := s.runVerification(ctx, request)
			if err != nil {
				return nil, err
			}
			if !verified {
				return s.failEncoding(ctx, request, result, detail)
			}
			encodingDone = true
		}
	}

	commit, err := s.store.Commit(ctx, repository.CommitInput{
		RequestID:    request.ID,
		StudentUID:   request.StudentUID,
		CourseKey:    rule.CourseKey,
		CGPA:         cgpa,
		Rule:         rule,
		EncodingDone: encodingDone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "")
		}
		if errors.Is(err, repository.ErrSerializationExhausted) {
			return nil, appErrors.Wrap(err, appErrors.ErrTransientConflict.Code, appErrors.ErrTransientConflict.Status, appErrors.ErrTransientConflict.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit decision")
	}

	if s.capacity != nil {
		s.capacity.Invalidate(ctx, rule.CourseKey)
	}

	switch commit.Outcome {
	case models.OutcomeAdmitted:
		result.Status = models.RequestStatusApproved
	case models.OutcomeAdmittedStrict:
		result.Status = models.RequestStatusApproved
		result.StrictTier = true
	case models.OutcomeWaitlisted:
		result.Status = models.RequestStatusWaitlisted
	}
	result.DecidedAt = commit.DecidedAt

	s.metrics.RecordDecision(string(result.Status))
	s.logger.Info("enrollment decision committed",
		zap.String("request_id", request.ID),
		zap.String("student_uid", request.StudentUID),
		zap.String("course", rule.CourseKey),
		zap.String("status", string(result.Status)),
		zap.Bool("strict_tier", result.StrictTier),
		zap.Int("enrolled", commit.Enrolled),
	)
	return result, nil
}

// approvalPossible predicts whether the commit could end in approval.
// Enrollment records are never deleted, so a course already at capacity
// stays there: destined-for-waitlist requests skip the verification
// call entirely.
func (s *AdmissionService) approvalPossible(ctx context.Context, rule models.AdmissionRule, cgpa float64) (bool, error) {
	enrolled, err := s.enrollments.CountByCourse(ctx, rule.CourseKey)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read course capacity")
	}
	if enrolled >= rule.SeatLimit && cgpa < rule.StrictCGPA {
		return false, nil
	}
	return true, nil
}

func (s *AdmissionService) runVerification(ctx context.Context, request *models.EnrollmentRequest) (bool, string, error) {
	start := time.Now()
	res, err := s.verifier.Verify(ctx, request.StudentUID, request.PhotoURLs, request.Course)
	s.metrics.RecordVerification(time.Since(start), err == nil && res != nil && res.Encoded)
	if err != nil {
		s.logger.Warn("verification call errored",
			zap.String("request_id", request.ID),
			zap.Error(err),
		)
		detail := "verification service unreachable"
		if res != nil && res.Detail != "" {
			detail = res.Detail
		}
		return false, detail, nil
	}
	if !res.Encoded {
		return false, res.Detail, nil
	}
	return true, "", nil
}

func (s *AdmissionService) reject(ctx context.Context, request *models.EnrollmentRequest, result *models.DecisionResult, reason models.DecisionReason) (*models.DecisionResult, error) {
	now := time.Now().UTC()
	if err := s.requests.MarkRejected(ctx, request.ID, reason, now); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment request")
	}

	result.Status = models.RequestStatusRejected
	result.SetReason(reason)
	result.DecidedAt = now

	s.metrics.RecordDecision(string(models.RequestStatusRejected))
	s.logger.Info("enrollment request rejected",
		zap.String("request_id", request.ID),
		zap.String("student_uid", request.StudentUID),
		zap.String("reason_code", string(reason.Code)),
	)
	return result, nil
}

func (s *AdmissionService) failEncoding(ctx context.Context, request *models.EnrollmentRequest, result *models.DecisionResult, detail string) (*models.DecisionResult, error) {
	now := time.Now().UTC()
	if err := s.requests.MarkEncodingFailed(ctx, request.ID, now); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record encoding failure")
	}

	result.Status = models.RequestStatusEncodingFailed
	result.VerificationDetail = detail
	result.DecidedAt = now

	s.metrics.RecordDecision(string(models.RequestStatusEncodingFailed))
	s.logger.Warn("enrollment verification failed",
		zap.String("request_id", request.ID),
		zap.String("student_uid", request.StudentUID),
		zap.String("detail", detail),
	)
	return result, nil
}
