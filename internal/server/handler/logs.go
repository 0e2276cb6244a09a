package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// LogSource exposes the in-memory journal.
type LogSource interface {
	Recent(limit int) []domain.LogEvent
}

// AuditLister reads the persisted audit log.
type AuditLister interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// LogHandler serves the journal and the audit log.
type LogHandler struct {
	journal LogSource
	audit   AuditLister
	logger  *slog.Logger
}

// NewLogHandler creates a LogHandler. audit may be nil when persistence is
// disabled.
func NewLogHandler(journal LogSource, audit AuditLister, logger *slog.Logger) *LogHandler {
	return &LogHandler{journal: journal, audit: audit, logger: logger}
}

// ListLogs returns recent journal events, newest first. ?level= filters by
// level and ?force=true keeps only operator-forced events.
// GET /api/logs?limit=100&level=error
func (h *LogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100, 500)
	level := domain.LogLevel(strings.ToLower(r.URL.Query().Get("level")))
	forced := r.URL.Query().Get("force") == "true"

	events := h.journal.Recent(500)
	out := make([]domain.LogEvent, 0, min(limit, len(events)))
	for _, e := range events {
		if level != "" && e.Level != level {
			continue
		}
		if forced && !e.Force {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}

// ListAudit pages through the audit log, newest first.
// GET /api/audit?limit=50&offset=0&since=2026-10-01T00:00:00Z
func (h *LogHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log is not enabled")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}
