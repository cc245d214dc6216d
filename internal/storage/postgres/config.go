package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/warishayday/internal/domain/shop"
)

const (
	getConfigSQL = `SELECT config_json FROM shop_config WHERE id = 1`

	lockConfigSQL = `SELECT config_json FROM shop_config WHERE id = 1 FOR UPDATE`

	putConfigSQL = `INSERT INTO shop_config (id, config_json, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET config_json = EXCLUDED.config_json, updated_at = now()`

	initConfigSQL = `INSERT INTO shop_config (id, config_json, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO NOTHING`

	updateConfigSQL = `UPDATE shop_config SET config_json = $1, updated_at = now() WHERE id = 1`
)

var _ shop.Store = (*ConfigRepository)(nil)

// ConfigRepository stores the shop configuration as a single JSONB row.
type ConfigRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository returns a ConfigRepository that uses the given pool.
func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

// Get returns the stored document or shop.ErrConfigNotFound.
func (r *ConfigRepository) Get(ctx context.Context) (*shop.ShopConfig, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, getConfigSQL).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shop.ErrConfigNotFound
		}
		return nil, errors.Wrap(err, "get shop config")
	}
	return shop.Decode(raw)
}

// Put replaces the stored document.
func (r *ConfigRepository) Put(ctx context.Context, cfg *shop.ShopConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal shop config")
	}
	if _, err := r.pool.Exec(ctx, putConfigSQL, raw); err != nil {
		return errors.Wrap(err, "put shop config")
	}
	return nil
}

// Init inserts cfg only when the row does not exist yet and returns the
// stored document, which is cfg or whatever another caller wrote first.
func (r *ConfigRepository) Init(ctx context.Context, cfg *shop.ShopConfig) (*shop.ShopConfig, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal shop config")
	}
	if _, err := r.pool.Exec(ctx, initConfigSQL, raw); err != nil {
		return nil, errors.Wrap(err, "init shop config")
	}
	return r.Get(ctx)
}

// Update applies fn to the stored document inside a transaction holding
// the row lock, which also serializes it with order id issuance.
func (r *ConfigRepository) Update(ctx context.Context, fn func(cfg *shop.ShopConfig) error) (*shop.ShopConfig, error) {
	var out *shop.ShopConfig
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var raw []byte
		if err := tx.QueryRow(ctx, lockConfigSQL).Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shop.ErrConfigNotFound
			}
			return errors.Wrap(err, "lock shop config")
		}
		cfg, err := shop.Decode(raw)
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		raw, err = json.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "marshal shop config")
		}
		if _, err := tx.Exec(ctx, updateConfigSQL, raw); err != nil {
			return errors.Wrap(err, "update shop config")
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
