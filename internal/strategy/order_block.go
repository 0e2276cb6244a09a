package strategy

import (
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/indicator"
)

const orderBlockBars = 50

// OrderBlock looks back for a strong engulfing reversal and scores price
// sitting inside that candle's range.
type OrderBlock struct{}

func (OrderBlock) Name() string { return "order_block" }

func (m OrderBlock) Evaluate(s *indicator.Series, _ Params) domain.ModuleScore {
	n := s.Len()
	if n < 5 {
		return skip(m.Name(), "not enough bars")
	}
	cs := s.Candles
	price := s.Last().Close
	lowest := max(2, n-orderBlockBars)
	res := neutral(m.Name())

	for i := n - 3; i >= lowest; i-- {
		prev, block := cs[i-2], cs[i-1]
		if prev.Bearish() && block.Bullish() && block.Body() > 2*prev.Body() &&
			price >= block.Low && price <= block.High*1.01 {
			res.Long += 3
			res.Reason = "bullish order block"
			break
		}
	}
	for i := n - 3; i >= lowest; i-- {
		prev, block := cs[i-2], cs[i-1]
		if prev.Bullish() && block.Bearish() && block.Body() > 2*prev.Body() &&
			price >= block.Low*0.99 && price <= block.High {
			res.Short += 3
			res.Reason = join(res.Reason, "bearish order block")
			break
		}
	}
	return res
}
