package client

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/xenking/warishayday/internal/domain/order"
)

// OrderAPI is the part of Client the OrderBook needs.
type OrderAPI interface {
	Orders(ctx context.Context, f order.Filter) ([]order.Order, error)
	PlaceOrder(ctx context.Context, req order.Request) (*order.Order, error)
	SetStatus(ctx context.Context, id string, to order.Status) (*order.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ClearCancelled(ctx context.Context) (int, error)
}

var _ OrderAPI = (*Client)(nil)

// PendingPrefix marks the local id of an order still being placed.
const PendingPrefix = "pending-"

// OrderBook is a local view of the order list. Mutations show up at once
// and are marked pending until the server answers; a failed call reverts
// the entry, so the view always converges on what the server stored.
type OrderBook struct {
	api OrderAPI

	mu      sync.Mutex
	orders  []order.Order
	pending map[string]bool
	seq     int
	// refreshed counts Refresh calls; a revert never overrides a list
	// fetched while its call was in flight.
	refreshed int
}

// NewOrderBook creates an empty book backed by api.
func NewOrderBook(api OrderAPI) *OrderBook {
	return &OrderBook{api: api, pending: make(map[string]bool)}
}

// Orders returns a snapshot of the local list, newest first.
func (b *OrderBook) Orders() []order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.orders)
}

// Pending reports whether a change to id is still in flight.
func (b *OrderBook) Pending(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending[id]
}

// Refresh replaces the local list with the server's. On failure the current
// list is kept and the error returned.
func (b *OrderBook) Refresh(ctx context.Context) error {
	orders, err := b.api.Orders(ctx, order.Filter{})
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = orders
	clear(b.pending)
	b.refreshed++
	return nil
}

func (b *OrderBook) index(id string) int {
	return slices.IndexFunc(b.orders, func(o order.Order) bool { return o.ID == id })
}

// Place adds a pending placeholder, submits req and swaps in the stored
// order. The placeholder is dropped on failure.
func (b *OrderBook) Place(ctx context.Context, req order.Request) (*order.Order, error) {
	b.mu.Lock()
	b.seq++
	tmp := PendingPrefix + strconv.Itoa(b.seq)
	b.orders = slices.Insert(b.orders, 0, order.Order{
		ID:         tmp,
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Lines:      req.Lines,
		Status:     order.StatusNew,
	})
	b.pending[tmp] = true
	b.mu.Unlock()

	placed, err := b.api.PlaceOrder(ctx, req)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, tmp)
	i := b.index(tmp)
	if err != nil {
		if i >= 0 {
			b.orders = slices.Delete(b.orders, i, i+1)
		}
		return nil, err
	}
	if i < 0 {
		i = b.index(placed.ID)
	}
	if i >= 0 {
		b.orders[i] = *placed
	} else {
		b.orders = slices.Insert(b.orders, 0, *placed)
	}
	return placed, nil
}

// SetStatus shows the new status at once and restores the previous one if
// the server refuses or cannot be reached.
func (b *OrderBook) SetStatus(ctx context.Context, id string, to order.Status) error {
	b.mu.Lock()
	i := b.index(id)
	if i < 0 {
		b.mu.Unlock()
		return ErrNotFound
	}
	prev := b.orders[i].Status
	b.orders[i].Status = to
	b.pending[id] = true
	gen := b.refreshed
	b.mu.Unlock()

	updated, err := b.api.SetStatus(ctx, id, to)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
	i = b.index(id)
	if i < 0 {
		return err
	}
	if err != nil {
		if gen == b.refreshed {
			b.orders[i].Status = prev
		}
		return err
	}
	b.orders[i] = *updated
	return nil
}

// Delete hides the order at once and puts it back at its position if the
// deletion fails.
func (b *OrderBook) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	i := b.index(id)
	if i < 0 {
		b.mu.Unlock()
		return ErrNotFound
	}
	removed := b.orders[i]
	b.orders = slices.Delete(b.orders, i, i+1)
	b.pending[id] = true
	gen := b.refreshed
	b.mu.Unlock()

	err := b.api.DeleteOrder(ctx, id)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
	if err != nil && gen == b.refreshed && b.index(id) < 0 {
		b.orders = slices.Insert(b.orders, min(i, len(b.orders)), removed)
	}
	return err
}

// ClearCancelled hides every cancelled order at once, marking each pending,
// and puts back only those orders if the server call fails. Changes other
// calls make in the meantime are left alone.
func (b *OrderBook) ClearCancelled(ctx context.Context) (int, error) {
	type hidden struct {
		at    int
		order order.Order
	}
	b.mu.Lock()
	var (
		removed []hidden
		kept    = make([]order.Order, 0, len(b.orders))
	)
	for i, o := range b.orders {
		if o.Status != order.StatusCancelled {
			kept = append(kept, o)
			continue
		}
		removed = append(removed, hidden{at: i, order: o})
		b.pending[o.ID] = true
	}
	b.orders = kept
	gen := b.refreshed
	b.mu.Unlock()

	n, err := b.api.ClearCancelled(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range removed {
		delete(b.pending, h.order.ID)
	}
	if err != nil {
		if gen == b.refreshed {
			for _, h := range removed {
				if b.index(h.order.ID) < 0 {
					b.orders = slices.Insert(b.orders, min(h.at, len(b.orders)), h.order)
				}
			}
		}
		return 0, err
	}
	return n, nil
}
