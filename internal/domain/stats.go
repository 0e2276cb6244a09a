package domain

import "time"

// Stats is a point-in-time copy of the running counters.
type Stats struct {
	RealizedPnL   float64   `json:"realized_pnl"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Trades        int       `json:"trades"`
	Balance       float64   `json:"balance"`
	StartBalance  float64   `json:"start_balance"`
	OpenNotional  float64   `json:"open_notional"`
	OpenPositions int       `json:"open_positions"`
	StartedAt     time.Time `json:"started_at"`
}

// WinRate returns wins over closed trades as a percentage.
func (s Stats) WinRate() float64 {
	total := s.Wins + s.Losses
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total) * 100
}

// BotStatus summarizes the scheduler flags alongside the counters.
type BotStatus struct {
	Mode          string  `json:"mode"`
	Running       bool    `json:"running"`
	Trading       bool    `json:"trading"`
	Scanning      bool    `json:"scanning"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	WinRate       float64 `json:"win_rate"`
	Stats         Stats   `json:"stats"`
}
