// Package client is a Go client for the shop REST API.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/dashboard"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/wire"
)

// ErrNotFound is returned when the API reports a missing resource.
var ErrNotFound = errors.New("not found")

// APIError is a non-validation error response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return http.StatusText(e.Code) + ": " + e.Message
}

// Is matches ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets an admin session token obtained earlier.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client calls the API. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Token returns the current admin session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	op := method + " " + path
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", op)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, responseError(resp.StatusCode, data)
}

func responseError(code int, data []byte) error {
	body, err := wire.DecodeError(data)
	if err != nil || body.Message == "" {
		body = wire.Error{Code: code, Message: strings.TrimSpace(string(data))}
	}
	if code == http.StatusUnprocessableEntity {
		reason := strings.TrimPrefix(body.Message, body.Field+": ")
		return &apperr.ValidationError{Field: body.Field, Reason: reason}
	}
	return &APIError{Code: code, Message: body.Message}
}

func encode(fn func(e *jx.Encoder)) []byte { return wire.Encode(fn) }

// Login exchanges the admin PIN for a session token, which is then sent on
// every request.
func (c *Client) Login(ctx context.Context, pin string) error {
	data, err := c.do(ctx, http.MethodPost, "/api/login", nil, encode(func(e *jx.Encoder) {
		wire.EncodeLogin(e, pin)
	}))
	if err != nil {
		return err
	}
	token, err := wire.DecodeToken(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// Config returns the shop configuration.
func (c *Client) Config(ctx context.Context) (*shop.ShopConfig, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/config", nil, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeConfig(data)
}

// PutConfig replaces the whole configuration document.
func (c *Client) PutConfig(ctx context.Context, cfg *shop.ShopConfig) (*shop.ShopConfig, error) {
	var e jx.Encoder
	if err := wire.EncodeConfig(&e, cfg); err != nil {
		return nil, err
	}
	return c.configCall(ctx, http.MethodPut, "/api/config", e.Bytes())
}

// AddCategory creates an empty category.
func (c *Client) AddCategory(ctx context.Context, id, label string) (*shop.ShopConfig, error) {
	return c.configCall(ctx, http.MethodPost, "/api/categories", encode(func(e *jx.Encoder) {
		wire.EncodeNewCategory(e, wire.NewCategory{ID: id, Label: label})
	}))
}

// RemoveCategory deletes a category with its prices and items.
func (c *Client) RemoveCategory(ctx context.Context, id string) (*shop.ShopConfig, error) {
	return c.configCall(ctx, http.MethodDelete, "/api/categories/"+url.PathEscape(id), nil)
}

// SetItems replaces the items of a category.
func (c *Client) SetItems(ctx context.Context, id string, items []shop.Item) (*shop.ShopConfig, error) {
	return c.configCall(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(id)+"/items", encode(func(e *jx.Encoder) {
		wire.EncodeItems(e, items)
	}))
}

// SetPrices replaces the price row of a category.
func (c *Client) SetPrices(ctx context.Context, id string, p shop.PriceTable) (*shop.ShopConfig, error) {
	return c.configCall(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(id)+"/prices", encode(func(e *jx.Encoder) {
		wire.EncodePrices(e, p)
	}))
}

// SetCrossTray sets the per-tray price of cross-category purchases.
func (c *Client) SetCrossTray(ctx context.Context, tray int64) (*shop.ShopConfig, error) {
	return c.configCall(ctx, http.MethodPut, "/api/prices/cross", encode(func(e *jx.Encoder) {
		wire.EncodePrices(e, shop.PriceTable{Tray: tray})
	}))
}

func (c *Client) configCall(ctx context.Context, method, path string, body []byte) (*shop.ShopConfig, error) {
	data, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	return wire.DecodeConfig(data)
}

// Quote prices a request without placing it.
func (c *Client) Quote(ctx context.Context, req order.Request) (*order.Quote, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/quote", nil, encode(func(e *jx.Encoder) {
		wire.EncodeRequest(e, req)
	}))
	if err != nil {
		return nil, err
	}
	return wire.DecodeQuote(data)
}

// PlaceOrder submits an order. The server prices it and issues the id.
func (c *Client) PlaceOrder(ctx context.Context, req order.Request) (*order.Order, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/orders", nil, encode(func(e *jx.Encoder) {
		wire.EncodeRequest(e, req)
	}))
	if err != nil {
		return nil, err
	}
	return wire.DecodeOrder(data)
}

// Orders lists orders matching f, newest first.
func (c *Client) Orders(ctx context.Context, f order.Filter) ([]order.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.IDContains != "" {
		q.Set("q", f.IDContains)
	}
	data, err := c.do(ctx, http.MethodGet, "/api/orders", q, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeOrders(data)
}

// Order returns a single order.
func (c *Client) Order(ctx context.Context, id string) (*order.Order, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeOrder(data)
}

// SetStatus moves an order to a new status.
func (c *Client) SetStatus(ctx context.Context, id string, to order.Status) (*order.Order, error) {
	data, err := c.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(id)+"/status", nil, encode(func(e *jx.Encoder) {
		wire.EncodeStatus(e, to)
	}))
	if err != nil {
		return nil, err
	}
	return wire.DecodeOrder(data)
}

// DeleteOrder removes a confirmed or cancelled order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(id), nil, nil)
	return err
}

// ClearCancelled removes every cancelled order.
func (c *Client) ClearCancelled(ctx context.Context) (int, error) {
	data, err := c.do(ctx, http.MethodDelete, "/api/orders", url.Values{"status": {string(order.StatusCancelled)}}, nil)
	if err != nil {
		return 0, err
	}
	count, err := wire.DecodeCount(data)
	if err != nil {
		return 0, err
	}
	return count.Deleted, nil
}

// Dashboard returns sales figures around day. A zero day means today on
// the server.
func (c *Client) Dashboard(ctx context.Context, day time.Time) (*dashboard.Summary, error) {
	q := url.Values{}
	if !day.IsZero() {
		q.Set("date", day.Format(dashboard.DateLayout))
	}
	data, err := c.do(ctx, http.MethodGet, "/api/dashboard", q, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeDashboard(data)
}
