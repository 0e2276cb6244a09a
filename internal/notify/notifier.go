// Package notify delivers trading alerts to chat channels. Alerts are
// filtered by event type so operators receive only what they subscribed to.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/config"
)

// DefaultCooldown suppresses repeats of the same event and title. The
// monitor loop re-evaluates every few seconds and would otherwise resend
// an emergency alert until the position is gone.
const DefaultCooldown = time.Minute

// Sender is a single delivery channel.
type Sender interface {
	Send(ctx context.Context, event, title, message string) error
	Name() string
}

// Notifier fans alerts out to every registered Sender.
type Notifier struct {
	senders  []Sender
	events   map[string]bool
	cooldown time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

// NewNotifier creates a Notifier. An empty events list allows every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders:  senders,
		events:   allowed,
		cooldown: DefaultCooldown,
		logger:   logger.With(slog.String("component", "notifier")),
		sent:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// FromConfig builds a Notifier with a sender for every configured channel.
func FromConfig(cfg config.NotifyConfig, logger *slog.Logger) *Notifier {
	var senders []Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return NewNotifier(senders, cfg.Events, logger)
}

// SetCooldown changes the repeat-suppression window. Zero disables it.
func (n *Notifier) SetCooldown(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cooldown = d
}

// Enabled reports whether any sender is registered.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify delivers the alert when its event type is subscribed and the same
// alert was not sent within the cooldown window.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notify: event filtered", slog.String("event", event))
		return nil
	}
	if !n.admit(event, title) {
		n.logger.DebugContext(ctx, "notify: repeat suppressed",
			slog.String("event", event),
			slog.String("title", title),
		)
		return nil
	}
	return n.dispatch(ctx, event, title, message)
}

// NotifyAll delivers the alert regardless of filter and cooldown.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, "", title, message)
}

func (n *Notifier) admit(event, title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cooldown <= 0 {
		return true
	}
	now := n.now()
	key := event + "\x00" + title
	if last, ok := n.sent[key]; ok && now.Sub(last) < n.cooldown {
		return false
	}
	for k, t := range n.sent {
		if now.Sub(t) >= n.cooldown {
			delete(n.sent, k)
		}
	}
	n.sent[key] = now
	return true
}

// dispatch tries every sender; one failing channel does not block the rest.
func (n *Notifier) dispatch(ctx context.Context, event, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, event, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
