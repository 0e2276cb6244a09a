package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// BotController is the scheduler surface the control endpoints drive.
type BotController interface {
	Start()
	Stop()
	SetTrading(on bool) error
	EmergencyStop(ctx context.Context) (closed, failed int, err error)
	Status() domain.BotStatus
	Decisions(limit int) []domain.Decision
}

// BotHandler serves bot status and lifecycle controls.
type BotHandler struct {
	bot    BotController
	logger *slog.Logger
}

func NewBotHandler(bot BotController, logger *slog.Logger) *BotHandler {
	return &BotHandler{bot: bot, logger: logger}
}

// GetStatus returns run flags and the stats snapshot.
// GET /api/status
func (h *BotHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bot.Status())
}

// Start sets the bot running. Trading stays as it was.
// POST /api/bot/start
func (h *BotHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.bot.Start()
	h.logger.InfoContext(r.Context(), "handler: bot started")
	writeJSON(w, http.StatusOK, h.bot.Status())
}

// Stop halts both loops.
// POST /api/bot/stop
func (h *BotHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.bot.Stop()
	h.logger.InfoContext(r.Context(), "handler: bot stopped")
	writeJSON(w, http.StatusOK, h.bot.Status())
}

type tradingRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetTrading toggles the scan loop.
// POST /api/bot/trading {"enabled": true}
func (h *BotHandler) SetTrading(w http.ResponseWriter, r *http.Request) {
	var req tradingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.bot.SetTrading(*req.Enabled); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.bot.Status())
}

// EmergencyStop stops the bot and closes every open position before
// responding.
// POST /api/bot/emergency-stop
func (h *BotHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	closed, failed, err := h.bot.EmergencyStop(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: emergency stop failed",
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), "emergency stop failed: "+err.Error())
		return
	}
	h.logger.WarnContext(r.Context(), "handler: emergency stop",
		slog.Int("closed", closed),
		slog.Int("failed", failed),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"closed": closed,
		"failed": failed,
		"status": h.bot.Status(),
	})
}

// ListSignals returns recent actionable decisions, newest first.
// GET /api/signals?limit=20
func (h *BotHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	decisions := h.bot.Decisions(parseLimit(r, 20, 200))
	if decisions == nil {
		decisions = []domain.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": decisions})
}
