package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/service"
)

// PositionLister returns the snapshot published by the last monitor tick.
type PositionLister interface {
	Positions() []service.PositionView
}

// PositionCloser closes positions on operator request.
type PositionCloser interface {
	Close(ctx context.Context, symbol string, reason domain.ExitReason) (domain.ClosedTrade, error)
	CloseAll(ctx context.Context) (closed, failed int, err error)
}

// PositionHandler serves position endpoints.
type PositionHandler struct {
	lister PositionLister
	closer PositionCloser
	logger *slog.Logger
}

func NewPositionHandler(lister PositionLister, closer PositionCloser, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{lister: lister, closer: closer, logger: logger}
}

// ListPositions returns open positions with their trailing state.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.lister.Positions()
	if positions == nil {
		positions = []service.PositionView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// ClosePosition closes one position at market.
// POST /api/positions/{symbol}/close
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	trade, err := h.closer.Close(r.Context(), symbol, domain.ExitManual)
	if err != nil {
		if errors.Is(err, domain.ErrNoPosition) {
			writeError(w, http.StatusNotFound, "no open position for "+symbol)
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: close position failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), "failed to close position")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// CloseAll closes every open position and waits for completion.
// POST /api/positions/close-all
func (h *PositionHandler) CloseAll(w http.ResponseWriter, r *http.Request) {
	closed, failed, err := h.closer.CloseAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: close all failed",
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), "failed to close positions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"closed": closed, "failed": failed})
}
