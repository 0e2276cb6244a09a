package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// codeNoMarginChange is returned when the margin type is already set.
const codeNoMarginChange = -4046

// Balance returns the USDT wallet balance.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var acct apiAccount
	if err := c.signed(ctx, http.MethodGet, "/fapi/v2/account", nil, &acct); err != nil {
		return 0, fmt.Errorf("binance: account: %w", err)
	}
	return acct.usdtBalance(), nil
}

// Positions returns positions with a non-zero amount.
func (c *Client) Positions(ctx context.Context, symbol string) ([]domain.PositionSnapshot, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	var raw []apiPositionRisk
	if err := c.signed(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, &raw); err != nil {
		return nil, fmt.Errorf("binance: position risk: %w", err)
	}
	out := make([]domain.PositionSnapshot, 0, len(raw))
	for _, p := range raw {
		snap := p.toDomain()
		if snap.Amount == 0 {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// PlaceOrder submits req.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	params, err := orderParams(req)
	if err != nil {
		return domain.OrderResult{}, err
	}
	var res apiOrderResult
	if err := c.signed(ctx, http.MethodPost, "/fapi/v1/order", params, &res); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: place %s %s %s: %w", req.Type, req.Side, req.Symbol, err)
	}
	return res.toDomain(), nil
}

func orderParams(req domain.OrderRequest) (url.Values, error) {
	if req.Symbol == "" || req.Side == "" || req.Type == "" {
		return nil, fmt.Errorf("binance: %w: symbol, side and type are required", domain.ErrInvalidOrder)
	}
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))

	switch req.Type {
	case domain.OrderTypeStopMarket:
		if !(req.StopPrice > 0) {
			return nil, fmt.Errorf("binance: %w: stop price must be positive", domain.ErrInvalidOrder)
		}
		params.Set("stopPrice", formatDecimal(req.StopPrice, req.PricePrecision))
		params.Set("workingType", "MARK_PRICE")
	}

	if req.ClosePosition {
		params.Set("closePosition", "true")
	} else {
		if !(req.Quantity > 0) {
			return nil, fmt.Errorf("binance: %w: quantity must be positive", domain.ErrInvalidOrder)
		}
		params.Set("quantity", formatDecimal(req.Quantity, req.QtyPrecision))
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	return params, nil
}

// SetLeverage sets the initial leverage for symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))
	if err := c.signed(ctx, http.MethodPost, "/fapi/v1/leverage", params, nil); err != nil {
		return fmt.Errorf("binance: set leverage %s: %w", symbol, err)
	}
	return nil
}

// SetMarginType switches symbol's margin mode. Being already in the
// requested mode is not an error.
func (c *Client) SetMarginType(ctx context.Context, symbol string, mt domain.MarginType) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("marginType", string(mt))
	err := c.signed(ctx, http.MethodPost, "/fapi/v1/marginType", params, nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.Code == codeNoMarginChange || strings.Contains(apiErr.Message, "No need to change")) {
		return nil
	}
	return fmt.Errorf("binance: set margin type %s: %w", symbol, err)
}

// CancelAllOrders cancels every open order on symbol.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	if err := c.signed(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", params, nil); err != nil {
		return fmt.Errorf("binance: cancel all %s: %w", symbol, err)
	}
	return nil
}

// LastRealizedPnL returns the realized PnL on the most recent fill.
func (c *Client) LastRealizedPnL(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", "1")
	var trades []apiUserTrade
	if err := c.signed(ctx, http.MethodGet, "/fapi/v1/userTrades", params, &trades); err != nil {
		return 0, fmt.Errorf("binance: user trades %s: %w", symbol, err)
	}
	if len(trades) == 0 {
		return 0, fmt.Errorf("binance: user trades %s: %w", symbol, domain.ErrNotFound)
	}
	return parseFloat(trades[len(trades)-1].RealizedPnl), nil
}
