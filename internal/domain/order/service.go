package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/orderid"
	"github.com/xenking/warishayday/internal/domain/pricing"
	"github.com/xenking/warishayday/internal/domain/shop"
)

// DefaultTimeZone is the shop's local zone used for order ids and
// timestamps unless WithLocation overrides it.
const DefaultTimeZone = "Asia/Bangkok"

// ConfigSource supplies the current shop configuration.
type ConfigSource interface {
	Load(ctx context.Context) (*shop.ShopConfig, error)
}

// Request is a customer order as entered, before pricing.
type Request struct {
	CategoryID    string
	DeclaredLimit int
	Type          shop.PurchaseType
	// Lines are ignored for mixed purchases.
	Lines []Line
}

// Quote is a priced Request.
type Quote struct {
	pricing.Quote
	Limit    pricing.Limit
	Category string
	// Lines are the normalized non-zero lines that would be stored.
	Lines []Line
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone order ids and timestamps are derived in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithLogger sets the service logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Service) { s.lg = lg }
}

// Service encapsulates order pricing, placement and lifecycle.
type Service struct {
	config ConfigSource
	orders Repository
	now    func() time.Time
	loc    *time.Location
	lg     *zap.Logger
}

// NewService creates an order Service.
func NewService(config ConfigSource, orders Repository, opts ...Option) *Service {
	s := &Service{
		config: config,
		orders: orders,
		now:    time.Now,
		lg:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.loc == nil {
		loc, err := time.LoadLocation(DefaultTimeZone)
		if err != nil {
			loc = time.FixedZone("ICT", 7*60*60)
		}
		s.loc = loc
	}
	return s
}

// Location returns the zone the service works in.
func (s *Service) Location() *time.Location { return s.loc }

// Quote prices req against the current configuration.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return quote(cfg, req)
}

func quote(cfg *shop.ShopConfig, req Request) (*Quote, error) {
	if !req.Type.Valid() {
		return nil, apperr.Invalidf("type", "unknown purchase type %q", req.Type)
	}
	cat, err := cfg.Category(req.CategoryID)
	if err != nil {
		if errors.Is(err, shop.ErrCategoryNotFound) {
			return nil, apperr.Invalidf("category", "unknown category %q", req.CategoryID)
		}
		return nil, err
	}
	limit, err := pricing.DeriveLimit(req.DeclaredLimit)
	if err != nil {
		return nil, err
	}
	table, err := cfg.TableFor(req.CategoryID, req.Type)
	if err != nil {
		return nil, err
	}

	var lines []Line
	if req.Type != shop.TypeMixed {
		lines, err = normalizeLines(req.Lines, cfg.ItemsFor(req.CategoryID, req.Type))
		if err != nil {
			return nil, err
		}
		if err := CheckLines(req.Type, lines, limit); err != nil {
			return nil, err
		}
	}

	q := pricing.Compute(pricing.Input{
		Type:       req.Type,
		Table:      table,
		Lines:      pricingLines(lines),
		FullLimit:  limit.FullLimit,
		MixedUnits: limit.Units(),
	})
	if req.Type == shop.TypeMixed {
		lines = []Line{{Name: MixedLineName, Quantity: limit.Units()}}
	} else {
		lines = nonZero(lines)
	}
	return &Quote{
		Quote:    q,
		Limit:    limit,
		Category: cat.Meta.Label,
		Lines:    lines,
	}, nil
}

// PlaceOrder prices req server-side and persists it as a new order with a
// freshly issued id.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Order, error) {
	q, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if q.Price <= 0 {
		return nil, apperr.Invalid("price", "total price must be greater than zero")
	}

	now := s.now().In(s.loc)
	o := &Order{
		Category:   q.Category,
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Lines:      q.Lines,
		Price:      q.Price,
		Status:     StatusNew,
		CreatedAt:  now,
	}
	issue := func(settings shop.OrderSettings) (string, shop.OrderSettings) {
		return orderid.Next(settings, now)
	}
	if err := s.orders.Create(ctx, o, issue); err != nil {
		if apperr.IsConflict(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("category", o.CategoryID),
		zap.String("type", string(o.Type)),
		zap.Int64("price", o.Price),
	)
	return o, nil
}

// List returns orders matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalidf("status", "unknown status %q", f.Status)
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// Confirm marks a new order as confirmed.
func (s *Service) Confirm(ctx context.Context, id string) (*Order, error) {
	return s.SetStatus(ctx, id, StatusConfirmed)
}

// Cancel marks a new order as cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (*Order, error) {
	return s.SetStatus(ctx, id, StatusCancelled)
}

// SetStatus moves a new order to a terminal status.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(to) {
		return nil, apperr.Invalidf("status", "cannot change %s order to %s", o.Status, to)
	}
	if err := s.orders.UpdateStatus(ctx, id, o.Status, to); err != nil {
		if apperr.IsConflict(err) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "update order %s", id)
	}
	o.Status = to
	s.lg.Info("Order status changed", zap.String("order_id", id), zap.String("status", string(to)))
	return o, nil
}

// Delete removes a confirmed or cancelled order. New orders must be
// cancelled first.
func (s *Service) Delete(ctx context.Context, id string) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !o.Status.Deletable() {
		return apperr.Invalidf("status", "cannot delete %s order", o.Status)
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrapf(err, "delete order %s", id)
	}
	return nil
}

// ClearCancelled removes every cancelled order and reports how many were
// deleted.
func (s *Service) ClearCancelled(ctx context.Context) (int, error) {
	n, err := s.orders.DeleteByStatus(ctx, StatusCancelled)
	if err != nil {
		return 0, errors.Wrap(err, "clear cancelled orders")
	}
	if n > 0 {
		s.lg.Info("Cancelled orders cleared", zap.Int("count", n))
	}
	return n, nil
}
