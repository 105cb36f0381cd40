package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campusd/admission-api/internal/models"
	"github.com/campusd/admission-api/internal/rules"
	appErrors "github.com/campusd/admission-api/pkg/errors"
)

const capacityCachePrefix = "capacity:"

type capacityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type waitlistReader interface {
	ListByCourse(ctx context.Context, courseKey string) ([]models.WaitlistEntry, error)
}

// CapacityService serves the read-only capacity and waitlist views.
// Snapshots go through a short-lived Redis cache that is invalidated on
// every committed decision; the cache is never consulted inside the
// decision transaction.
type CapacityService struct {
	enrollments enrollmentCounter
	waitlist    waitlistReader
	resolver    RuleResolver
	cache       capacityCache
	metrics     *MetricsService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(enrollments enrollmentCounter, waitlist waitlistReader, resolver RuleResolver, cache capacityCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CapacityService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{
		enrollments: enrollments,
		waitlist:    waitlist,
		resolver:    resolver,
		cache:       cache,
		metrics:     metrics,
		ttl:         ttl,
		logger:      logger,
	}
}

// Snapshot returns the current enrolled count against the course rule.
func (s *CapacityService) Snapshot(ctx context.Context, course string) (*models.CapacitySnapshot, error) {
	rule := s.resolver.Resolve(course)
	key := capacityCachePrefix + rule.CourseKey

	if s.cache != nil {
		var cached models.CapacitySnapshot
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("capacity cache read failed", zap.String("course", rule.CourseKey), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	enrolled, err := s.enrollments.CountByCourse(ctx, rule.CourseKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read course capacity")
	}

	snapshot := &models.CapacitySnapshot{
		Course:     rule.CourseKey,
		SeatLimit:  rule.SeatLimit,
		Enrolled:   enrolled,
		StrictCGPA: rule.StrictCGPA,
		Full:       enrolled >= rule.SeatLimit,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot, s.ttl); err != nil {
			s.logger.Warn("capacity cache write failed", zap.String("course", rule.CourseKey), zap.Error(err))
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot after a committed decision.
func (s *CapacityService) Invalidate(ctx context.Context, courseKey string) {
	if s.cache == nil {
		return
	}
	key := capacityCachePrefix + rules.NormalizeCourse(courseKey)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("capacity cache invalidation failed", zap.String("course", courseKey), zap.Error(err))
	}
}

// Waitlist returns the waitlist entries for a course in arrival order.
func (s *CapacityService) Waitlist(ctx context.Context, course string) ([]models.WaitlistEntry, error) {
	key := rules.NormalizeCourse(course)
	entries, err := s.waitlist.ListByCourse(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	return entries, nil
}
