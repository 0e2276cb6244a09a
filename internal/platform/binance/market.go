package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// filtersTTL bounds how long exchangeInfo increments are reused.
const filtersTTL = time.Hour

// Tickers24h returns 24h statistics for every futures symbol.
func (c *Client) Tickers24h(ctx context.Context) ([]domain.Ticker, error) {
	var raw []apiTicker
	if err := c.getPublic(ctx, "/fapi/v1/ticker/24hr", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance: tickers: %w", err)
	}
	out := make([]domain.Ticker, 0, len(raw))
	for _, t := range raw {
		out = append(out, t.toDomain())
	}
	return out, nil
}

// Klines returns up to limit candles, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := c.getPublic(ctx, "/fapi/v1/klines", params, &rows); err != nil {
		return nil, fmt.Errorf("binance: klines %s: %w", symbol, err)
	}
	out := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := decodeKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance: klines %s: %w: %v", symbol, domain.ErrInvalidData, err)
		}
		out = append(out, candle)
	}
	return out, nil
}

// Price returns the latest traded price.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var p apiPrice
	if err := c.getPublic(ctx, "/fapi/v1/ticker/price", params, &p); err != nil {
		return 0, fmt.Errorf("binance: price %s: %w", symbol, err)
	}
	return parseFloat(p.Price), nil
}

// FundingRate returns the last funding rate as a fraction.
func (c *Client) FundingRate(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var p apiPremiumIndex
	if err := c.getPublic(ctx, "/fapi/v1/premiumIndex", params, &p); err != nil {
		return 0, fmt.Errorf("binance: funding rate %s: %w", symbol, err)
	}
	return parseFloat(p.LastFundingRate), nil
}

// SymbolFilters returns the lot step and price tick for symbol. Unknown
// symbols get default increments.
func (c *Client) SymbolFilters(ctx context.Context, symbol string) (domain.SymbolFilters, error) {
	c.filtersMu.RLock()
	f, ok := c.filters[symbol]
	fresh := time.Since(c.filtersAt) < filtersTTL
	c.filtersMu.RUnlock()
	if ok && fresh {
		return f, nil
	}

	var info apiExchangeInfo
	if err := c.getPublic(ctx, "/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return domain.SymbolFilters{}, fmt.Errorf("binance: exchange info: %w", err)
	}
	all := info.filters()

	c.filtersMu.Lock()
	c.filters = all
	c.filtersAt = time.Now()
	c.filtersMu.Unlock()

	return all[symbol].Normalize(), nil
}
