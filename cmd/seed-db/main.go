// Command seed-db writes a shop configuration into the database, either
// from a JSON document or the built-in defaults.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		configFile  string
		force       bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&configFile, "config-file", "", "shop configuration JSON (defaults when empty)")
	flag.BoolVar(&force, "force", false, "replace an existing configuration")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, configFile, force); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, configFile string, force bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	written, err := seed(ctx, postgres.NewConfigRepository(pool), cfg, force)
	if err != nil {
		return err
	}
	if !written {
		slog.Info("configuration already present, use -force to replace it")
		return nil
	}
	slog.Info("configuration written",
		slog.String("shop", cfg.ShopName),
		slog.Int("categories", len(cfg.CategoryIDs())),
	)
	return nil
}

// seed stores cfg when no configuration exists and reports whether it
// wrote anything. With force an existing document is replaced too, keeping
// its order counter so ids already issued are never handed out again.
func seed(ctx context.Context, store shop.Store, cfg *shop.ShopConfig, force bool) (bool, error) {
	_, err := store.Get(ctx)
	switch {
	case errors.Is(err, shop.ErrConfigNotFound):
		if _, err := store.Init(ctx, cfg); err != nil {
			return false, errors.Wrap(err, "write configuration")
		}
		return true, nil
	case err != nil:
		return false, errors.Wrap(err, "read configuration")
	case !force:
		return false, nil
	}

	if _, err := store.Update(ctx, func(cur *shop.ShopConfig) error {
		cur.ReplaceKeepingCounter(cfg)
		return nil
	}); err != nil {
		return false, errors.Wrap(err, "replace configuration")
	}
	return true, nil
}

// loadConfig reads and validates a configuration document. Missing fields
// are filled from the defaults.
func loadConfig(path string) (*shop.ShopConfig, error) {
	if path == "" {
		return shop.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	cfg, err := shop.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validate %s", path)
	}
	return cfg, nil
}
