package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type statsStoreStub struct {
	stats *models.RequestStats
	calls int
}

func (s *statsStoreStub) Stats(ctx context.Context) (*models.RequestStats, error) {
	s.calls++
	copy := *s.stats
	return &copy, nil
}

type userCounterStub struct {
	count int
}

func (s *userCounterStub) CountAll(ctx context.Context) (int, error) {
	return s.count, nil
}

type statsCacheStub struct {
	entries map[string][]byte
}

func newStatsCacheStub() *statsCacheStub {
	return &statsCacheStub{entries: make(map[string][]byte)}
}

func (c *statsCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (c *statsCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *statsCacheStub) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

type auditReaderStub struct {
	logs   []models.AuditLog
	filter models.AuditFilter
}

func (a *auditReaderStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	a.filter = filter
	return a.logs, nil
}

func dashboardFixture() *models.RequestStats {
	return &models.RequestStats{
		TotalRequests:    10,
		PendingRequests:  4,
		ApprovedRequests: 5,
		RejectedRequests: 1,
		RequestsByType:   map[string]int{"termination": 7, "idReplacement": 3},
	}
}

func TestStatsServiceDashboardCachesAggregate(t *testing.T) {
	store := &statsStoreStub{stats: dashboardFixture()}
	cache := newStatsCacheStub()
	svc := NewStatsService(store, &userCounterStub{count: 25}, cache, &auditReaderStub{}, nil, time.Minute)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, stats.TotalRequests)
	require.Equal(t, 25, stats.TotalUsers)
	require.Equal(t, 1, store.calls)
	require.Contains(t, cache.entries, statsCacheKey)

	// second read is served from cache
	stats, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 25, stats.TotalUsers)
	require.Equal(t, 1, store.calls)
}

func TestStatsServiceDashboardWithoutCache(t *testing.T) {
	store := &statsStoreStub{stats: dashboardFixture()}
	svc := NewStatsService(store, &userCounterStub{count: 3}, nil, &auditReaderStub{}, nil, 0)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalUsers)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, store.calls)
}

func TestStatsServiceInvalidate(t *testing.T) {
	store := &statsStoreStub{stats: dashboardFixture()}
	cache := newStatsCacheStub()
	svc := NewStatsService(store, &userCounterStub{}, cache, &auditReaderStub{}, nil, time.Minute)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Contains(t, cache.entries, statsCacheKey)

	svc.Invalidate(context.Background())
	require.NotContains(t, cache.entries, statsCacheKey)
}

func TestStatsServiceAuditLogsFilter(t *testing.T) {
	reader := &auditReaderStub{logs: []models.AuditLog{{Action: models.AuditActionLogin}}}
	svc := NewStatsService(&statsStoreStub{stats: dashboardFixture()}, &userCounterStub{}, nil, reader, nil, time.Minute)

	logs, err := svc.AuditLogs(context.Background(), dto.AuditQuery{
		Action:   models.AuditActionLogin,
		DateFrom: "2026-01-01",
		Limit:    50,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.AuditActionLogin, reader.filter.Action)
	require.Equal(t, 50, reader.filter.Limit)
	require.NotNil(t, reader.filter.DateFrom)
}
