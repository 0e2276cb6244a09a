package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/screener"
)

const (
	klineAttempts = 3
	klineBackoff  = time.Second
	// minSeriesLen is the shortest series accepted from the exchange.
	minSeriesLen = 20
)

// MarketService wraps exchange market data with retries, validation and an
// optional Redis kline cache.
type MarketService struct {
	market  domain.MarketData
	cache   domain.KlineCache
	backoff time.Duration
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(market domain.MarketData, cache domain.KlineCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		market:  market,
		cache:   cache,
		backoff: klineBackoff,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// Klines returns a validated candle series for symbol. Cached series are
// served without touching the exchange; fetches are retried three times.
func (s *MarketService) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, symbol, interval, limit)
		if err != nil {
			s.logger.DebugContext(ctx, "market_service: kline cache read failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		} else if ok && ValidateSeries(cached) == nil {
			return cached, nil
		}
	}

	candles, err := s.fetchKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, symbol, interval, limit, candles); err != nil {
			s.logger.DebugContext(ctx, "market_service: kline cache write failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return candles, nil
}

// FreshKlines bypasses the cache. Exit evaluation uses it so levels are
// computed from the latest bar.
func (s *MarketService) FreshKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return s.fetchKlines(ctx, symbol, interval, limit)
}

func (s *MarketService) fetchKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	var lastErr error
	for attempt := 1; attempt <= klineAttempts; attempt++ {
		candles, err := s.market.Klines(ctx, symbol, interval, limit)
		if err == nil {
			err = ValidateSeries(candles)
			if err == nil {
				return candles, nil
			}
		}
		lastErr = err
		if ctx.Err() != nil || attempt == klineAttempts {
			break
		}
		if err := sleepCtx(ctx, s.backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("market_service: klines %s after %d attempts: %w", symbol, klineAttempts, lastErr)
}

// ValidateSeries rejects series shorter than 20 bars, with a non-finite
// close, or with any high below its low.
func ValidateSeries(candles []domain.Candle) error {
	if len(candles) < minSeriesLen {
		return fmt.Errorf("%w: %d bars", domain.ErrInsufficientData, len(candles))
	}
	for i, c := range candles {
		if math.IsNaN(c.Close) || math.IsInf(c.Close, 0) {
			return fmt.Errorf("%w: non-finite close at bar %d", domain.ErrInvalidData, i)
		}
		if c.High < c.Low {
			return fmt.Errorf("%w: high below low at bar %d", domain.ErrInvalidData, i)
		}
	}
	return nil
}

// Screen returns the tradeable USDT symbols above minVolumeMillions.
func (s *MarketService) Screen(ctx context.Context, minVolumeMillions float64) ([]string, error) {
	tickers, err := s.market.Tickers24h(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: tickers: %w", err)
	}
	return screener.Filter(tickers, minVolumeMillions), nil
}

// Price returns the latest traded price.
func (s *MarketService) Price(ctx context.Context, symbol string) (float64, error) {
	return s.market.Price(ctx, symbol)
}

// Filters returns symbol increments, falling back to defaults on error.
func (s *MarketService) Filters(ctx context.Context, symbol string) domain.SymbolFilters {
	f, err := s.market.SymbolFilters(ctx, symbol)
	if err != nil {
		s.logger.WarnContext(ctx, "market_service: symbol filters unavailable, using defaults",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return domain.SymbolFilters{}.Normalize()
	}
	return f.Normalize()
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsCapitalRejection reports whether err is an open skipped for lack of
// capital, an expected outcome rather than a failure.
func IsCapitalRejection(err error) bool {
	return errors.Is(err, domain.ErrBelowMinNotional)
}
