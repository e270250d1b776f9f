package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

const statsCacheKey = "stats:dashboard"

type statsStore interface {
	Stats(ctx context.Context) (*models.RequestStats, error)
}

type userCounter interface {
	CountAll(ctx context.Context) (int, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type auditReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// StatsService serves the admin dashboard: cached aggregate counters plus
// the audit trail.
type StatsService struct {
	requests statsStore
	users    userCounter
	cache    statsCache
	auditLog auditReader
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewStatsService constructs the service.
func NewStatsService(requests statsStore, users userCounter, cache statsCache, auditLog auditReader, logger *zap.Logger, cacheTTL time.Duration) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &StatsService{
		requests: requests,
		users:    users,
		cache:    cache,
		auditLog: auditLog,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Dashboard returns the aggregate counters, served from cache when fresh.
func (s *StatsService) Dashboard(ctx context.Context) (*models.RequestStats, error) {
	if s.cache != nil {
		var cached models.RequestStats
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.requests.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate request stats")
	}

	total, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	stats.TotalUsers = total

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Invalidate drops the cached dashboard payload.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// AuditLogs returns the filtered audit trail.
func (s *StatsService) AuditLogs(ctx context.Context, query dto.AuditQuery) ([]models.AuditLog, error) {
	filter := models.AuditFilter{
		Action: query.Action,
		User:   query.User,
		Limit:  query.Limit,
	}
	if from, ok := parseQueryDate(query.DateFrom); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseQueryDate(query.DateTo); ok {
		filter.DateTo = &to
	}

	logs, err := s.auditLog.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}
