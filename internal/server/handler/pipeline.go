package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// ArchiveHandler triggers an out-of-schedule audit archive run.
type ArchiveHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{}
}

// NewArchiveHandler creates an ArchiveHandler. The archiver loop must
// receive from triggerCh; a nil channel makes the endpoint report 503.
func NewArchiveHandler(triggerCh chan<- struct{}, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{triggerCh: triggerCh, logger: logger}
}

// TriggerArchive enqueues one archive run. A pending trigger absorbs
// repeated requests.
// POST /api/archive/trigger
func (h *ArchiveHandler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	if h.triggerCh == nil {
		writeError(w, http.StatusServiceUnavailable, "archiver is not running")
		return
	}
	h.logger.InfoContext(r.Context(), "handler: archive trigger requested")

	queued := true
	select {
	case h.triggerCh <- struct{}{}:
	default:
		queued = false
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
