// Package binance implements domain.Exchange against the USDT-margined
// futures REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/crypto"
	"github.com/alanyoungcy/futuresbot/internal/domain"
)

// Base endpoints.
const (
	MainnetURL = "https://fapi.binance.com"
	TestnetURL = "https://testnet.binancefuture.com"
)

// rateLimitKey is the shared limiter bucket for all REST calls.
const rateLimitKey = "binance:rest"

// APIError is a structured error body returned by the exchange.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != 0 || e.Message != "" {
		return fmt.Sprintf("binance: HTTP %d (code=%d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("binance: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps transport-level statuses onto domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusTooManyRequests, 418:
		return domain.ErrRateLimited
	}
	return nil
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Limiter, when set, is consulted before every request.
	Limiter           domain.RateLimiter
	RequestsPerMinute int
}

// Client is the futures REST client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.HMACAuth
	limiter    domain.RateLimiter
	perMinute  int

	filtersMu sync.RWMutex
	filters   map[string]domain.SymbolFilters
	filtersAt time.Time
}

// NewClient creates a client. auth may be nil for market-data-only use.
func NewClient(auth *crypto.HMACAuth, opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = MainnetURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		limiter:    opts.Limiter,
		perMinute:  opts.RequestsPerMinute,
	}
}

var _ domain.Exchange = (*Client)(nil)

// getPublic issues an unsigned GET and decodes the JSON body into out.
func (c *Client) getPublic(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(ctx, req, out)
}

// signed issues an HMAC-signed request. Parameters travel in the query
// string for every method.
func (c *Client) signed(ctx context.Context, method, path string, params url.Values, out any) error {
	if c.auth == nil {
		return fmt.Errorf("%w: no API credentials configured", domain.ErrUnauthorized)
	}
	query := c.auth.Sign(params)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.auth.Headers() {
		req.Header.Set(k, v)
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.throttle(ctx, req); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// throttle charges the request's weight against the shared per-minute
// budget. Limiters without weight support are charged one unit.
func (c *Client) throttle(ctx context.Context, req *http.Request) error {
	if c.limiter == nil || c.perMinute <= 0 {
		return nil
	}
	if wl, ok := c.limiter.(weightedLimiter); ok {
		w := min(requestWeight(req.URL.Path, req.URL.Query()), c.perMinute)
		return wl.WaitN(ctx, rateLimitKey, w, c.perMinute, time.Minute)
	}
	return c.limiter.Wait(ctx, rateLimitKey, c.perMinute, time.Minute)
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	_ = json.Unmarshal(body, apiErr)
	return apiErr
}
