// Package memory implements the shop configuration and order stores in
// process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/orderid"
	"github.com/xenking/warishayday/internal/domain/shop"
)

// Store holds the configuration document and all orders behind one lock,
// so order id issuance and config updates never interleave.
type Store struct {
	mu     sync.Mutex
	cfg    *shop.ShopConfig
	orders map[string]order.Order
}

// New returns an empty Store.
func New() *Store {
	return &Store{orders: make(map[string]order.Order)}
}

// Config returns the Store viewed as a shop.Store.
func (s *Store) Config() *ConfigStore { return (*ConfigStore)(s) }

// Orders returns the Store viewed as an order.Repository.
func (s *Store) Orders() *OrderStore { return (*OrderStore)(s) }

// ConfigStore implements shop.Store.
type ConfigStore Store

var _ shop.Store = (*ConfigStore)(nil)

// Get returns a copy of the document or shop.ErrConfigNotFound.
func (c *ConfigStore) Get(ctx context.Context) (*shop.ShopConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg == nil {
		return nil, shop.ErrConfigNotFound
	}
	return c.cfg.Clone(), nil
}

// Put replaces the document.
func (c *ConfigStore) Put(ctx context.Context, cfg *shop.ShopConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg = cfg.Clone()
	return nil
}

// Init stores cfg unless a document is already present and returns a copy
// of the stored document.
func (c *ConfigStore) Init(ctx context.Context, cfg *shop.ShopConfig) (*shop.ShopConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg == nil {
		c.cfg = cfg.Clone()
	}
	return c.cfg.Clone(), nil
}

// Update applies fn to a copy of the document and keeps the copy only when
// fn succeeds.
func (c *ConfigStore) Update(ctx context.Context, fn func(cfg *shop.ShopConfig) error) (*shop.ShopConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg == nil {
		return nil, shop.ErrConfigNotFound
	}
	next := c.cfg.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	c.cfg = next
	return next.Clone(), nil
}

// OrderStore implements order.Repository.
type OrderStore Store

var _ order.Repository = (*OrderStore)(nil)

func cloneOrder(o order.Order) order.Order {
	o.Lines = append([]order.Line(nil), o.Lines...)
	return o
}

// List returns orders matching f, newest first.
func (r *OrderStore) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.Match(&o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get returns a single order by id.
func (r *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

// Create issues an id from the stored order settings and inserts o. Taken
// ids are skipped; when every attempt collides the counter still moves past
// them so the next call starts further ahead.
func (r *OrderStore) Create(ctx context.Context, o *order.Order, issue order.IssueFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg == nil {
		return shop.ErrConfigNotFound
	}
	settings := r.cfg.OrderSettings
	var id string
	for range order.MaxIssueAttempts {
		id, settings = issue(settings)
		if _, taken := r.orders[id]; taken {
			continue
		}
		r.cfg.OrderSettings = settings
		o.ID = id
		r.orders[id] = cloneOrder(*o)
		return nil
	}
	r.cfg.OrderSettings = settings
	return &apperr.ConflictError{Resource: "order", ID: id}
}

// UpdateStatus moves an order from one status to another.
func (r *OrderStore) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return &apperr.ConflictError{Resource: "order", ID: id}
	}
	o.Status = to
	r.orders[id] = o
	return nil
}

// Delete removes a single order.
func (r *OrderStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

// DeleteByStatus removes every order in status and returns the count.
func (r *OrderStore) DeleteByStatus(ctx context.Context, status order.Status) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, o := range r.orders {
		if o.Status == status {
			delete(r.orders, id)
			n++
		}
	}
	return n, nil
}

// Import inserts orders with their existing ids, skipping ids already
// present, and returns how many were inserted. The order counter is moved
// past every imported id.
func (r *OrderStore) Import(ctx context.Context, orders []order.Order) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, o := range orders {
		if _, ok := r.orders[o.ID]; ok {
			continue
		}
		r.orders[o.ID] = cloneOrder(o)
		n++
	}
	if r.cfg != nil {
		for _, o := range orders {
			r.cfg.OrderSettings = orderid.Observe(r.cfg.OrderSettings, o.ID)
		}
	}
	return n, nil
}

// EachID calls fn for every stored order id.
func (r *OrderStore) EachID(ctx context.Context, fn func(id string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	ids := make([]string, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		fn(id)
	}
	return nil
}
