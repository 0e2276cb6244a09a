package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidOrder       = errors.New("invalid order parameters")
	ErrLockHeld           = errors.New("lock already held")
	ErrPositionOpen       = errors.New("position already open")
	ErrNoPosition         = errors.New("no open position")
	ErrBelowMinNotional   = errors.New("investment below minimum order size")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrInvalidData        = errors.New("invalid market data")
	ErrNotRunning         = errors.New("bot not running")
	ErrFundingRateTooHigh = errors.New("funding rate above cap")
	ErrMonitorOnly        = errors.New("trading disabled in monitor mode")
)
