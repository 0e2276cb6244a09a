package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// apiTicker is one entry of /fapi/v1/ticker/24hr.
type apiTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

func (t apiTicker) toDomain() domain.Ticker {
	return domain.Ticker{
		Symbol:      t.Symbol,
		LastPrice:   parseFloat(t.LastPrice),
		QuoteVolume: parseFloat(t.QuoteVolume),
	}
}

// apiExchangeInfo is the subset of /fapi/v1/exchangeInfo the bot reads.
type apiExchangeInfo struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
		Filters []struct {
			FilterType string `json:"filterType"`
			StepSize   string `json:"stepSize"`
			TickSize   string `json:"tickSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

func (e apiExchangeInfo) filters() map[string]domain.SymbolFilters {
	out := make(map[string]domain.SymbolFilters, len(e.Symbols))
	for _, s := range e.Symbols {
		var f domain.SymbolFilters
		for _, flt := range s.Filters {
			switch flt.FilterType {
			case "LOT_SIZE":
				f.StepSize = parseFloat(flt.StepSize)
			case "PRICE_FILTER":
				f.TickSize = parseFloat(flt.TickSize)
			}
		}
		out[s.Symbol] = f.Normalize()
	}
	return out
}

type apiPremiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
}

type apiPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type apiAccount struct {
	TotalWalletBalance string `json:"totalWalletBalance"`
	AvailableBalance   string `json:"availableBalance"`
	Assets             []struct {
		Asset         string `json:"asset"`
		WalletBalance string `json:"walletBalance"`
	} `json:"assets"`
}

// usdtBalance prefers the USDT asset wallet balance and falls back to the
// account total.
func (a apiAccount) usdtBalance() float64 {
	for _, as := range a.Assets {
		if as.Asset == "USDT" {
			return parseFloat(as.WalletBalance)
		}
	}
	return parseFloat(a.TotalWalletBalance)
}

type apiPositionRisk struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
}

func (p apiPositionRisk) toDomain() domain.PositionSnapshot {
	lev, _ := strconv.Atoi(p.Leverage)
	return domain.PositionSnapshot{
		Symbol:        p.Symbol,
		Amount:        parseFloat(p.PositionAmt),
		EntryPrice:    parseFloat(p.EntryPrice),
		MarkPrice:     parseFloat(p.MarkPrice),
		UnrealizedPnL: parseFloat(p.UnRealizedProfit),
		Leverage:      lev,
	}
}

type apiOrderResult struct {
	OrderID     int64  `json:"orderId"`
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	AvgPrice    string `json:"avgPrice"`
	ExecutedQty string `json:"executedQty"`
}

func (o apiOrderResult) toDomain() domain.OrderResult {
	return domain.OrderResult{
		OrderID:     o.OrderID,
		Symbol:      o.Symbol,
		Status:      o.Status,
		AvgPrice:    parseFloat(o.AvgPrice),
		ExecutedQty: parseFloat(o.ExecutedQty),
	}
}

type apiUserTrade struct {
	Symbol      string `json:"symbol"`
	RealizedPnl string `json:"realizedPnl"`
	Time        int64  `json:"time"`
}

// decodeKline converts one positional kline row:
// [openTime, open, high, low, close, volume, closeTime, ...].
func decodeKline(row []json.RawMessage) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("kline row has %d fields", len(row))
	}
	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return domain.Candle{}, fmt.Errorf("kline open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			// Some gateways send bare numbers.
			var f float64
			if err2 := json.Unmarshal(row[i+1], &f); err2 != nil {
				return domain.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
			}
			vals[i] = f
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = f
	}
	return domain.Candle{
		OpenTime: time.UnixMilli(openMs).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

// parseFloat returns 0 for empty or malformed numeric strings.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// formatDecimal renders v with prec decimals, or the shortest exact form
// when prec is negative.
func formatDecimal(v float64, prec int) string {
	if prec < 0 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
