package strategy

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

// MinBars is the shortest series the engine will score.
const MinBars = 50

// Options are the tunable engine inputs taken from a settings snapshot.
type Options struct {
	Threshold float64
	MinRSI    float64
	MaxRSI    float64
	Disabled  []string
}

// DefaultOptions mirrors the trading defaults.
func DefaultOptions() Options {
	return Options{Threshold: 14, MinRSI: 35, MaxRSI: 70}
}

// Engine fuses module scores into a LONG/SHORT/HOLD decision. An Engine is
// immutable; WithOptions returns a copy sharing the decision history.
type Engine struct {
	registry *Registry
	opts     Options
	now      func() time.Time
	logger   *slog.Logger
	recent   *decisionLog
}

// NewEngine creates an Engine over the registry's modules.
func NewEngine(registry *Registry, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "signal_engine")),
		recent:   &decisionLog{limit: 200},
	}
}

// WithOptions returns an engine using opts for subsequent calls.
func (e *Engine) WithOptions(opts Options) *Engine {
	cp := *e
	cp.opts = opts
	return &cp
}

// WithClock returns an engine that reads time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Options returns the engine's current options.
func (e *Engine) Options() Options { return e.opts }

// Score enriches candles and evaluates every enabled module.
func (e *Engine) Score(candles []domain.Candle) domain.Decision {
	if len(candles) < MinBars {
		return hold("insufficient data")
	}
	s, err := indicator.Enrich(candles)
	if err != nil {
		return hold("error: " + err.Error())
	}
	return e.ScoreSeries(s)
}

// ScoreSeries evaluates an already enriched series.
func (e *Engine) ScoreSeries(s *indicator.Series) domain.Decision {
	if s == nil || s.Len() < MinBars {
		return hold("insufficient data")
	}

	p := Params{MinRSI: e.opts.MinRSI, MaxRSI: e.opts.MaxRSI, Now: e.now()}
	modules := e.registry.Modules(e.opts.Disabled...)

	d := domain.Decision{Signal: domain.DirectionHold, CreatedAt: p.Now}
	var reasons []string
	for _, m := range modules {
		res := e.evaluate(m, s, p)
		d.Modules = append(d.Modules, res)
		if res.Skipped {
			continue
		}
		d.Long += res.Long
		d.Short += res.Short
		if res.Reason != "" {
			reasons = append(reasons, fmt.Sprintf("[%s: %s]", res.Module, res.Reason))
		}
	}
	d.Reason = strings.Join(reasons, " | ")

	th := e.opts.Threshold
	switch {
	case d.Long >= th && d.Long > d.Short:
		d.Signal, d.Score = domain.DirectionLong, d.Long
	case d.Short >= th && d.Short > d.Long:
		d.Signal, d.Score = domain.DirectionShort, d.Short
	}
	return d
}

// evaluate runs one module, converting a panic into a skip so a faulty
// module never sinks the whole decision.
func (e *Engine) evaluate(m Module, s *indicator.Series, p Params) (res domain.ModuleScore) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("strategy: module failed",
				slog.String("module", m.Name()),
				slog.Any("panic", r),
			)
			res = skip(m.Name(), fmt.Sprintf("error: %v", r))
		}
	}()
	res = m.Evaluate(s, p)
	if res.Long < 0 || res.Short < 0 {
		return skip(m.Name(), "negative points")
	}
	return res
}

// Record keeps an actionable decision in the shared history.
func (e *Engine) Record(d domain.Decision) {
	if d.Actionable() {
		e.recent.add(d)
	}
}

// RecentDecisions returns up to limit actionable decisions, newest first.
func (e *Engine) RecentDecisions(limit int) []domain.Decision {
	return e.recent.list(limit)
}

func hold(reason string) domain.Decision {
	return domain.Decision{Signal: domain.DirectionHold, Reason: reason}
}

type decisionLog struct {
	mu    sync.Mutex
	items []domain.Decision
	limit int
}

func (l *decisionLog) add(d domain.Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, d)
	if len(l.items) > l.limit {
		l.items = l.items[len(l.items)-l.limit:]
	}
}

func (l *decisionLog) list(limit int) []domain.Decision {
	if limit <= 0 {
		limit = 20
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Decision, 0, min(limit, len(l.items)))
	for i := len(l.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.items[i])
	}
	return out
}
