package domain

import "time"

// LogLevel grades journal events.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEvent is an operator-facing message. Forced events are shown even
// when the consumer filters routine output.
type LogEvent struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
	Force   bool      `json:"force"`
}

// Bus channels.
const (
	ChannelLogs      = "logs"
	ChannelPositions = "positions"
	ChannelStats     = "stats"
	ChannelSignals   = "signals"
	ChannelTrades    = "trades"

	StreamTrades = "stream:trades"
)
