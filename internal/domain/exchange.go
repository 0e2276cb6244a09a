package domain

import "context"

// MarketData is the read side of the exchange.
type MarketData interface {
	Tickers24h(ctx context.Context) ([]Ticker, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	Price(ctx context.Context, symbol string) (float64, error)
	SymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error)
	// FundingRate returns the last funding rate as a fraction.
	FundingRate(ctx context.Context, symbol string) (float64, error)
}

// Trading is the account side of the exchange.
type Trading interface {
	// Positions returns live positions; an empty symbol means all symbols.
	Positions(ctx context.Context, symbol string) ([]PositionSnapshot, error)
	Balance(ctx context.Context) (float64, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginType(ctx context.Context, symbol string, mt MarginType) error
	CancelAllOrders(ctx context.Context, symbol string) error
	// LastRealizedPnL returns the realized PnL of the most recent fill.
	LastRealizedPnL(ctx context.Context, symbol string) (float64, error)
}

// Exchange is the full capability set consumed by the bot.
type Exchange interface {
	MarketData
	Trading
}
