package strategy

import (
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

// Module is one independent scoring rule. Implementations must be total:
// any input yields a score or a skip, never a panic.
type Module interface {
	Name() string
	Evaluate(s *indicator.Series, p Params) domain.ModuleScore
}

// Params is the per-call context shared by every module.
type Params struct {
	MinRSI float64
	MaxRSI float64
	Now    time.Time
}

func points(name string, long, short float64, reason string) domain.ModuleScore {
	return domain.ModuleScore{Module: name, Long: long, Short: short, Reason: reason}
}

func skip(name, reason string) domain.ModuleScore {
	return domain.ModuleScore{Module: name, Reason: reason, Skipped: true}
}

func neutral(name string) domain.ModuleScore {
	return domain.ModuleScore{Module: name}
}
