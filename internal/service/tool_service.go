package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/cyberblue/soc-console/internal/domain/tool"
	"github.com/cyberblue/soc-console/internal/port/outbound"
)

// refreshTriggers are the live message types that invalidate the tool view.
var refreshTriggers = map[string]bool{
	"anomaly_detected":    true,
	"tool_status_changed": true,
	"status_update":       true,
}

// RefreshRecorder records refresh outcomes. Implemented by the metrics
// package; a nil recorder disables recording.
type RefreshRecorder interface {
	RecordRefresh(outcome string)
}

// ToolService owns the tool inventory view: fetching, filtering, bulk
// actions, and live-triggered refreshes.
//
// Refreshes are applied in completion order: when two refreshes overlap, the
// last one to complete wins. Close sets a liveness flag that discards any
// in-flight result, so an unmounted view is never updated.
type ToolService struct {
	source  outbound.DataSource
	logger  *slog.Logger
	metrics RefreshRecorder

	mu          sync.Mutex
	tools       []tool.Tool
	fingerprint uint64
	closed      bool
	onUpdate    func([]tool.Tool)
}

// NewToolService creates a ToolService backed by the given data source.
func NewToolService(source outbound.DataSource, logger *slog.Logger) *ToolService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolService{source: source, logger: logger}
}

// SetMetrics attaches a refresh recorder. Optional.
func (s *ToolService) SetMetrics(m RefreshRecorder) {
	s.metrics = m
}

// OnUpdate registers a callback invoked (outside the lock) whenever a refresh
// lands a collection that differs from the previous one.
func (s *ToolService) OnUpdate(fn func([]tool.Tool)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Refresh fetches the tool inventory and applies it. A fetch failure keeps
// the previous collection (the view shows stale data with a retry control,
// never crashes). Results arriving after Close are discarded.
func (s *ToolService) Refresh(ctx context.Context) error {
	tools, err := s.source.Tools(ctx)
	if err != nil {
		s.logger.Error("tool refresh failed", "error", err)
		s.recordRefresh("error")
		return fmt.Errorf("failed to refresh tools: %w", err)
	}
	s.recordRefresh("ok")

	fp := fingerprintTools(tools)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	changed := fp != s.fingerprint
	s.tools = tools
	s.fingerprint = fp
	notify := s.onUpdate
	s.mu.Unlock()

	if changed && notify != nil {
		notify(append([]tool.Tool(nil), tools...))
	}
	return nil
}

// Tools returns the last-known collection filtered by the given axes.
func (s *ToolService) Tools(statusFilter, categoryFilter string) []tool.Tool {
	s.mu.Lock()
	snapshot := append([]tool.Tool(nil), s.tools...)
	s.mu.Unlock()
	return tool.Filter(snapshot, statusFilter, categoryFilter)
}

// Act applies a lifecycle action to one tool.
func (s *ToolService) Act(ctx context.Context, toolID string, action tool.Action) error {
	if err := s.source.ToolAction(ctx, toolID, action); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, toolID, err)
	}
	return nil
}

// BulkAct applies a lifecycle action to every selected tool, one request per
// id. It does not mutate the selection; the caller decides whether to clear
// it after confirmation. All failures are joined and returned; successful
// requests are not rolled back.
func (s *ToolService) BulkAct(ctx context.Context, action tool.Action, sel *tool.Selection) error {
	var errs []error
	for _, id := range sel.IDs() {
		if err := s.source.ToolAction(ctx, id, action); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", action, id, err))
		}
	}
	return errors.Join(errs...)
}

// OnLiveMessage triggers a refresh for the message types that invalidate the
// tool view. Unrecognized types are ignored.
func (s *ToolService) OnLiveMessage(ctx context.Context, msgType string) {
	if !refreshTriggers[msgType] {
		return
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("live-triggered refresh failed", "type", msgType, "error", err)
	}
}

// Close marks the view unmounted: in-flight refresh results are discarded and
// no further update callbacks fire.
func (s *ToolService) Close() {
	s.mu.Lock()
	s.closed = true
	s.onUpdate = nil
	s.mu.Unlock()
}

// recordRefresh reports one refresh outcome to the metrics recorder.
func (s *ToolService) recordRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRefresh(outcome)
	}
}

// fingerprintTools hashes the fields the view renders, so refreshes that
// change nothing skip the update callback.
func fingerprintTools(tools []tool.Tool) uint64 {
	h := xxhash.New()
	for _, t := range tools {
		_, _ = h.WriteString(t.ID)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(string(t.Status))
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(string(t.Health))
		_, _ = h.WriteString("\x00")
		if t.UptimeMinutes != nil {
			_, _ = h.WriteString(strconv.Itoa(*t.UptimeMinutes))
		}
		_, _ = h.WriteString("\x1e")
	}
	return h.Sum64()
}
