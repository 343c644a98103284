package snapshot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/domain/report"
	"github.com/cyberblue/soc-console/internal/domain/tool"
	"github.com/cyberblue/soc-console/internal/port/outbound"
)

// Collection names used as snapshot keys.
const (
	collectionTools     = "tools"
	collectionMetrics   = "metrics"
	collectionIncidents = "incidents"
)

// Source wraps a primary DataSource with the snapshot cache. Reads that
// succeed refresh the cache; reads that fail because the backend is
// unreachable fall back to the last cached copy. Writes always go to the
// primary, never to the cache.
//
// Queries with caller-supplied parameters (audit logs, anomalies) are not
// cached: a stale filtered result is more misleading than an error.
type Source struct {
	primary outbound.DataSource
	store   *Store
	logger  *slog.Logger
}

var _ outbound.DataSource = (*Source)(nil)

// NewSource wraps primary with the given snapshot store.
func NewSource(primary outbound.DataSource, store *Store, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{primary: primary, store: store, logger: logger}
}

func (s *Source) Tools(ctx context.Context) ([]tool.Tool, error) {
	tools, err := s.primary.Tools(ctx)
	if err == nil {
		s.save(ctx, collectionTools, tools)
		return tools, nil
	}
	if !errors.Is(err, api.ErrServerUnreachable) {
		return nil, err
	}

	var cached []tool.Tool
	fetchedAt, cacheErr := s.store.Get(ctx, collectionTools, &cached)
	if cacheErr != nil {
		return nil, err
	}
	s.logger.Warn("backend unreachable, serving cached tools", "fetched_at", fetchedAt)
	return cached, nil
}

func (s *Source) Metrics(ctx context.Context) (*report.SystemMetrics, error) {
	metrics, err := s.primary.Metrics(ctx)
	if err == nil {
		s.save(ctx, collectionMetrics, metrics)
		return metrics, nil
	}
	if !errors.Is(err, api.ErrServerUnreachable) {
		return nil, err
	}

	var cached report.SystemMetrics
	fetchedAt, cacheErr := s.store.Get(ctx, collectionMetrics, &cached)
	if cacheErr != nil {
		return nil, err
	}
	s.logger.Warn("backend unreachable, serving cached metrics", "fetched_at", fetchedAt)
	return &cached, nil
}

func (s *Source) Incidents(ctx context.Context) ([]report.Incident, error) {
	incidents, err := s.primary.Incidents(ctx)
	if err == nil {
		s.save(ctx, collectionIncidents, incidents)
		return incidents, nil
	}
	if !errors.Is(err, api.ErrServerUnreachable) {
		return nil, err
	}

	var cached []report.Incident
	fetchedAt, cacheErr := s.store.Get(ctx, collectionIncidents, &cached)
	if cacheErr != nil {
		return nil, err
	}
	s.logger.Warn("backend unreachable, serving cached incidents", "fetched_at", fetchedAt)
	return cached, nil
}

// ToolAction is a write and always hits the primary.
func (s *Source) ToolAction(ctx context.Context, toolID string, action tool.Action) error {
	return s.primary.ToolAction(ctx, toolID, action)
}

// AuditLogs is parameterized and not cached.
func (s *Source) AuditLogs(ctx context.Context, q report.AuditQuery) ([]report.AuditLog, error) {
	return s.primary.AuditLogs(ctx, q)
}

// Anomalies is parameterized and not cached.
func (s *Source) Anomalies(ctx context.Context, q report.AnomalyQuery) ([]report.Anomaly, error) {
	return s.primary.Anomalies(ctx, q)
}

// AcknowledgeAnomalies is a write and always hits the primary.
func (s *Source) AcknowledgeAnomalies(ctx context.Context, ids []int) error {
	return s.primary.AcknowledgeAnomalies(ctx, ids)
}

// save refreshes the cache after a successful read. Cache failures are
// logged, never surfaced: a broken cache must not break a working backend.
func (s *Source) save(ctx context.Context, collection string, v any) {
	if err := s.store.Put(ctx, collection, v); err != nil {
		s.logger.Error("failed to cache snapshot", "collection", collection, "error", err)
	}
}
