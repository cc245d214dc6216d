package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/orderid"
	"github.com/xenking/warishayday/internal/domain/shop"
)

const (
	orderColumns = `id, category, category_id, order_type, items, price, status, created_at`

	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR strpos(lower(id), lower($2)) > 0)
		ORDER BY created_at DESC, id DESC`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	lockOrderSettingsSQL = `SELECT config_json->'orderSettings' FROM shop_config WHERE id = 1 FOR UPDATE`

	saveOrderSettingsSQL = `UPDATE shop_config
		SET config_json = jsonb_set(config_json, '{orderSettings}', $1::jsonb), updated_at = now()
		WHERE id = 1`

	updateOrderStatusSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	deleteOrdersByStatusSQL = `DELETE FROM orders WHERE status = $1`

	listOrderIDsSQL = `SELECT id FROM orders`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), f.IDContains)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Get returns a single order by id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// Create issues the next order id under the shop_config row lock, inserts
// the order and writes the advanced counter back in the same transaction.
// An id that already exists is skipped and the following one derived. When
// every attempt collides the skipped-ahead counter is still committed, so
// the next call continues past the taken ids.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, issue order.IssueFunc) error {
	items, err := json.Marshal(o.Lines)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	var id, issued string
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		settings, ok, err := lockOrderSettings(ctx, tx)
		if err != nil {
			return err
		}
		if !ok {
			return shop.ErrConfigNotFound
		}

		for range order.MaxIssueAttempts {
			id, settings = issue(settings)
			tag, err := tx.Exec(ctx, insertOrderSQL,
				id, o.Category, o.CategoryID, string(o.Type), items,
				decimal.NewFromInt(o.Price), string(o.Status), o.CreatedAt,
			)
			if err != nil {
				return errors.Wrapf(err, "insert order %q", id)
			}
			if tag.RowsAffected() == 1 {
				issued = id
				break
			}
		}
		return saveOrderSettings(ctx, tx, settings)
	})
	if err != nil {
		return err
	}
	if issued == "" {
		return &apperr.ConflictError{Resource: "order", ID: id}
	}
	o.ID = issued
	return nil
}

func lockOrderSettings(ctx context.Context, tx pgx.Tx) (shop.OrderSettings, bool, error) {
	var (
		raw      []byte
		settings shop.OrderSettings
	)
	if err := tx.QueryRow(ctx, lockOrderSettingsSQL).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings, false, nil
		}
		return settings, false, errors.Wrap(err, "lock order settings")
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return settings, false, errors.Wrap(err, "decode order settings")
		}
	}
	return settings, true, nil
}

func saveOrderSettings(ctx context.Context, tx pgx.Tx, settings shop.OrderSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshal order settings")
	}
	if _, err := tx.Exec(ctx, saveOrderSettingsSQL, raw); err != nil {
		return errors.Wrap(err, "save order settings")
	}
	return nil
}

// UpdateStatus moves an order from one status to another.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return errors.Wrapf(err, "update order %q status", id)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check order %q", id)
	}
	if !exists {
		return order.ErrNotFound
	}
	return &apperr.ConflictError{Resource: "order", ID: id}
}

// Delete removes a single order.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// DeleteByStatus removes every order in status and returns the count.
func (r *OrderRepository) DeleteByStatus(ctx context.Context, status order.Status) (int, error) {
	tag, err := r.pool.Exec(ctx, deleteOrdersByStatusSQL, string(status))
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s orders", status)
	}
	return int(tag.RowsAffected()), nil
}

// EachID calls fn for every stored order id.
func (r *OrderRepository) EachID(ctx context.Context, fn func(id string)) error {
	rows, err := r.pool.Query(ctx, listOrderIDsSQL)
	if err != nil {
		return errors.Wrap(err, "list order ids")
	}
	var id string
	_, err = pgx.ForEachRow(rows, []any{&id}, func() error {
		fn(id)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "scan order ids")
	}
	return nil
}

// Import inserts orders with their existing ids in one batch, skipping any
// id already stored, and returns how many rows were inserted. The order
// counter is moved past every imported id in the same transaction.
func (r *OrderRepository) Import(ctx context.Context, orders []order.Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for i := range orders {
		o := &orders[i]
		items, err := json.Marshal(o.Lines)
		if err != nil {
			return 0, errors.Wrapf(err, "marshal order %q items", o.ID)
		}
		batch.Queue(insertOrderSQL,
			o.ID, o.Category, o.CategoryID, string(o.Type), items,
			decimal.NewFromInt(o.Price), string(o.Status), o.CreatedAt,
		)
	}

	var inserted int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		settings, haveSettings, err := lockOrderSettings(ctx, tx)
		if err != nil {
			return err
		}

		br := tx.SendBatch(ctx, batch)
		for i := range orders {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return errors.Wrapf(err, "import order %q", orders[i].ID)
			}
			inserted += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return errors.Wrap(err, "close import batch")
		}

		if !haveSettings {
			return nil
		}
		next := settings
		for i := range orders {
			next = orderid.Observe(next, orders[i].ID)
		}
		if next == settings {
			return nil
		}
		return saveOrderSettings(ctx, tx, next)
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o       order.Order
		typ     string
		status  string
		items   []byte
		price   decimal.Decimal
		created time.Time
	)
	err := row.Scan(&o.ID, &o.Category, &o.CategoryID, &typ, &items, &price, &status, &created)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "scan order")
	}
	if err := json.Unmarshal(items, &o.Lines); err != nil {
		return order.Order{}, errors.Wrapf(err, "decode order %q items", o.ID)
	}
	o.Type = shop.PurchaseType(typ)
	o.Status = order.Status(status)
	o.Price = price.IntPart()
	o.CreatedAt = created
	return o, nil
}
