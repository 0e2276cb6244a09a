// Package screener selects scan candidates from the 24h ticker snapshot.
package screener

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

const (
	QuoteAsset = "USDT"
	million    = 1e6
)

// Filter returns the USDT-quoted symbols, excluding USDTUSDT, whose 24h
// quote volume is at least minVolumeMillions million. The result is sorted
// and free of duplicates.
func Filter(tickers []domain.Ticker, minVolumeMillions float64) []string {
	threshold := minVolumeMillions * million
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, QuoteAsset) || t.Symbol == QuoteAsset+QuoteAsset {
			continue
		}
		if !(t.QuoteVolume >= threshold) {
			continue
		}
		if _, dup := seen[t.Symbol]; dup {
			continue
		}
		seen[t.Symbol] = struct{}{}
		out = append(out, t.Symbol)
	}
	sort.Strings(out)
	return out
}
