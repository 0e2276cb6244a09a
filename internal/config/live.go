package config

import "sync/atomic"

// Live holds the current TradingSettings snapshot. Readers get a copy;
// writers replace the whole value.
type Live struct {
	cur atomic.Pointer[TradingSettings]
}

// NewLive seeds the holder with s.
func NewLive(s TradingSettings) *Live {
	l := &Live{}
	c := s.Clone()
	l.cur.Store(&c)
	return l
}

// Snapshot returns a copy of the current settings.
func (l *Live) Snapshot() TradingSettings {
	return l.cur.Load().Clone()
}

// Update validates s and makes it the current snapshot.
func (l *Live) Update(s TradingSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c := s.Clone()
	l.cur.Store(&c)
	return nil
}
