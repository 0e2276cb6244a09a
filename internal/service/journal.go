package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// defaultJournalSize bounds the in-memory event history.
const defaultJournalSize = 500

// Journal records operator-facing events. Each event goes to slog, a ring
// buffer served by the API, and the bus "logs" channel.
type Journal struct {
	mu     sync.Mutex
	buf    []domain.LogEvent
	next   int
	full   bool
	bus    domain.SignalBus
	logger *slog.Logger
	now    func() time.Time
}

// NewJournal creates a Journal holding up to size events. bus may be nil.
func NewJournal(size int, bus domain.SignalBus, logger *slog.Logger) *Journal {
	if size <= 0 {
		size = defaultJournalSize
	}
	return &Journal{
		buf:    make([]domain.LogEvent, size),
		bus:    bus,
		logger: logger.With(slog.String("component", "journal")),
		now:    time.Now,
	}
}

// Info records an informational event.
func (j *Journal) Info(ctx context.Context, force bool, format string, args ...any) {
	j.record(ctx, domain.LogInfo, force, fmt.Sprintf(format, args...))
}

// Warn records a warning.
func (j *Journal) Warn(ctx context.Context, force bool, format string, args ...any) {
	j.record(ctx, domain.LogWarn, force, fmt.Sprintf(format, args...))
}

// Error records an error event. Errors are always forced.
func (j *Journal) Error(ctx context.Context, format string, args ...any) {
	j.record(ctx, domain.LogError, true, fmt.Sprintf(format, args...))
}

func (j *Journal) record(ctx context.Context, level domain.LogLevel, force bool, msg string) {
	ev := domain.LogEvent{
		ID:      uuid.NewString(),
		Time:    j.now().UTC(),
		Level:   level,
		Message: msg,
		Force:   force,
	}

	attrs := []any{slog.Bool("force", force)}
	switch level {
	case domain.LogError:
		j.logger.ErrorContext(ctx, msg, attrs...)
	case domain.LogWarn:
		j.logger.WarnContext(ctx, msg, attrs...)
	default:
		j.logger.InfoContext(ctx, msg, attrs...)
	}

	j.mu.Lock()
	j.buf[j.next] = ev
	j.next = (j.next + 1) % len(j.buf)
	if j.next == 0 {
		j.full = true
	}
	j.mu.Unlock()

	if j.bus != nil {
		if payload, err := json.Marshal(ev); err == nil {
			if err := j.bus.Publish(ctx, domain.ChannelLogs, payload); err != nil {
				j.logger.DebugContext(ctx, "journal: publish failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Recent returns up to limit events, newest first. Non-positive limit
// returns everything held.
func (j *Journal) Recent(limit int) []domain.LogEvent {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := j.next
	if j.full {
		n = len(j.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.LogEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.buf)) % len(j.buf)
		out = append(out, j.buf[idx])
	}
	return out
}
