package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/futuresbot/internal/config"
)

// SettingsController reads and replaces the live trading settings.
type SettingsController interface {
	Settings() config.TradingSettings
	UpdateSettings(ctx context.Context, set config.TradingSettings) error
}

// SettingsHandler serves the trading settings endpoints.
type SettingsHandler struct {
	settings SettingsController
	logger   *slog.Logger
}

func NewSettingsHandler(settings SettingsController, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// GetSettings returns the current snapshot.
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Settings())
}

// UpdateSettings applies the fields present in the body on top of the
// current snapshot. The merged result must validate.
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	next := h.settings.Settings().Clone()
	if err := decodeJSON(w, r, &next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.UpdateSettings(r.Context(), next); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: update settings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), "failed to update settings")
		return
	}

	h.logger.InfoContext(r.Context(), "handler: settings updated",
		slog.Float64("score_threshold", next.ScoreThreshold),
		slog.Float64("budget_pct", next.BudgetPct),
		slog.String("interval", next.Interval),
	)
	writeJSON(w, http.StatusOK, h.settings.Settings())
}
