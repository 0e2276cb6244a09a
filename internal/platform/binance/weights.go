package binance

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// weightedLimiter is implemented by limiters that can charge a request its
// exchange weight rather than a single unit.
type weightedLimiter interface {
	WaitN(ctx context.Context, key string, n, limit int, window time.Duration) error
}

// requestWeight returns the IP weight Binance charges for a REST call.
// Unknown paths cost 1.
func requestWeight(path string, params url.Values) int {
	hasSymbol := params.Get("symbol") != ""
	switch path {
	case "/fapi/v1/ticker/24hr":
		if hasSymbol {
			return 1
		}
		return 40
	case "/fapi/v1/ticker/price":
		if hasSymbol {
			return 1
		}
		return 2
	case "/fapi/v1/premiumIndex":
		if hasSymbol {
			return 1
		}
		return 10
	case "/fapi/v1/klines":
		return klinesWeight(params.Get("limit"))
	case "/fapi/v2/account", "/fapi/v2/positionRisk", "/fapi/v1/userTrades":
		return 5
	case "/fapi/v1/allOpenOrders":
		return 1
	default:
		return 1
	}
}

func klinesWeight(limit string) int {
	n, err := strconv.Atoi(limit)
	if err != nil || n <= 0 {
		n = 500
	}
	switch {
	case n < 100:
		return 1
	case n < 500:
		return 2
	case n <= 1000:
		return 5
	default:
		return 10
	}
}
