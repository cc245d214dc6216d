// Package handler serves the storefront and admin REST API.
package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/warishayday/internal/domain/auth"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/pkg/httpmiddleware"
)

// DefaultMaxBodyBytes bounds request bodies. Item images travel inside the
// configuration document as data URIs, so the limit is generous.
const DefaultMaxBodyBytes = 10 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	MaxBodyBytes  int64
	MeterProvider metric.MeterProvider
	// LoginLimit wraps the login route, typically with a stricter rate
	// limit than the rest of the API.
	LoginLimit func(http.Handler) http.Handler
	Now        func() time.Time
}

// Handler implements the REST routes on top of the domain services.
type Handler struct {
	config  *shop.Service
	orders  *order.Service
	auth    *auth.Verifier
	maxBody int64
	login   func(http.Handler) http.Handler
	now     func() time.Time
	placed  metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, config *shop.Service, orders *order.Service, verifier *auth.Verifier) (*Handler, error) {
	h := &Handler{
		config:  config,
		orders:  orders,
		auth:    verifier,
		maxBody: cfg.MaxBodyBytes,
		login:   cfg.LoginLimit,
		now:     cfg.Now,
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.login == nil {
		h.login = func(next http.Handler) http.Handler { return next }
	}
	if h.now == nil {
		h.now = time.Now
	}

	mp := cfg.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	placed, err := mp.Meter("github.com/xenking/warishayday/internal/handler").Int64Counter(
		"warishayday.orders.placed",
		metric.WithDescription("Orders accepted from customers"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	h.placed = placed
	return h, nil
}

// handlerFunc is an HTTP handler that reports failures as errors.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	route := func(pattern string, fn handlerFunc) {
		mux.Handle(pattern, h.wrap(pattern, fn))
	}

	route("GET /api/config", h.getConfig)
	route("POST /api/quote", h.quote)
	route("POST /api/orders", h.placeOrder)
	mux.Handle("POST /api/login", h.login(h.wrap("POST /api/login", h.postLogin)))

	route("PUT /api/config", h.admin(h.putConfig))
	route("POST /api/categories", h.admin(h.addCategory))
	route("DELETE /api/categories/{id}", h.admin(h.removeCategory))
	route("PUT /api/categories/{id}/items", h.admin(h.setItems))
	route("PUT /api/categories/{id}/prices", h.admin(h.setPrices))
	route("PUT /api/prices/cross", h.admin(h.setCrossTray))

	route("GET /api/orders", h.admin(h.listOrders))
	route("GET /api/orders/{id}", h.admin(h.getOrder))
	route("PUT /api/orders/{id}/status", h.admin(h.setStatus))
	route("DELETE /api/orders/{id}", h.admin(h.deleteOrder))
	route("DELETE /api/orders", h.admin(h.clearOrders))
	route("GET /api/dashboard", h.admin(h.dashboard))
}

// wrap names the span and metrics after the route and renders errors.
func (h *Handler) wrap(pattern string, fn handlerFunc) http.Handler {
	_, path, _ := strings.Cut(pattern, " ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		trace.SpanFromContext(ctx).SetName(pattern)
		httpmiddleware.SetRoute(ctx, pattern)
		if labeler, ok := otelhttp.LabelerFromContext(ctx); ok {
			labeler.Add(attribute.String("http.route", path))
		}
		if err := fn(w, r); err != nil {
			h.writeError(w, r, err)
		}
	})
}

// readBody reads the request body up to the configured limit.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &statusError{code: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return nil, badRequest(err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
