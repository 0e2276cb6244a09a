package domain

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the exchange order type.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
)

// MarginType is the futures margin mode.
type MarginType string

const (
	MarginIsolated MarginType = "ISOLATED"
	MarginCrossed  MarginType = "CROSSED"
)

// OrderRequest describes an order to submit. Quantity is ignored when
// ClosePosition is set.
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Quantity      float64
	StopPrice     float64
	ReduceOnly    bool
	ClosePosition bool
	// Decimals used to format quantity and stop price on the wire. A
	// negative value uses the shortest exact representation.
	QtyPrecision   int
	PricePrecision int
}

// OrderResult is the exchange acknowledgement of a submitted order.
type OrderResult struct {
	OrderID     int64   `json:"order_id"`
	Symbol      string  `json:"symbol"`
	Status      string  `json:"status"`
	AvgPrice    float64 `json:"avg_price"`
	ExecutedQty float64 `json:"executed_qty"`
}

// MarketOrder builds a plain market entry.
func MarketOrder(symbol string, side OrderSide, qty float64, qtyPrec int) OrderRequest {
	return OrderRequest{Symbol: symbol, Side: side, Type: OrderTypeMarket, Quantity: qty, QtyPrecision: qtyPrec}
}

// StopMarketClose builds a protective stop that closes the whole position.
func StopMarketClose(symbol string, side OrderSide, stop float64, pricePrec int) OrderRequest {
	return OrderRequest{
		Symbol:         symbol,
		Side:           side,
		Type:           OrderTypeStopMarket,
		StopPrice:      stop,
		ClosePosition:  true,
		PricePrecision: pricePrec,
	}
}

// ReduceOnlyMarket builds a market order that can only shrink a position.
func ReduceOnlyMarket(symbol string, side OrderSide, qty float64) OrderRequest {
	return OrderRequest{Symbol: symbol, Side: side, Type: OrderTypeMarket, Quantity: qty, ReduceOnly: true, QtyPrecision: -1}
}
