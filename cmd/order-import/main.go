// Command order-import loads order exports of the previous system into
// PostgreSQL, skipping orders that are already stored.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/storage/postgres"
)

const (
	importBatch     = 500
	expectedOrders  = 1_000_000
	defaultParallel = 4
)

func main() {
	var (
		databaseURL string
		parallel    int
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&parallel, "parallel", defaultParallel, "number of export files parsed at once")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no export files given", slog.String("usage", "order-import [flags] orders.json [more.json.gz ...]"))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, parallel); err != nil {
		slog.Error("order import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("order import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, parallel int) error {
	exports, err := parseFiles(ctx, files, parallel)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	cfg, err := shop.NewService(postgres.NewConfigRepository(pool), nil).Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load shop config")
	}

	repo := postgres.NewOrderRepository(pool)
	filter := newDedup(expectedOrders, func(ctx context.Context, id string) (bool, error) {
		_, err := repo.Get(ctx, id)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, order.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	})
	var stored int
	if err := repo.EachID(ctx, func(id string) {
		filter.Seed(id)
		stored++
	}); err != nil {
		return errors.Wrap(err, "seed id filter")
	}
	slog.Info("existing orders indexed", slog.Int("count", stored))

	var imported, skipped int
	for i, orders := range exports {
		resolveCategories(orders, cfg)
		fresh, err := filter.Filter(ctx, orders)
		if err != nil {
			return err
		}
		skipped += len(orders) - len(fresh)

		for start := 0; start < len(fresh); start += importBatch {
			end := min(start+importBatch, len(fresh))
			n, err := repo.Import(ctx, fresh[start:end])
			if err != nil {
				return errors.Wrapf(err, "import %s", files[i])
			}
			imported += n
			skipped += end - start - n
		}
		slog.Info("file imported", slog.String("file", files[i]), slog.Int("orders", len(orders)), slog.Int("new", len(fresh)))
	}

	slog.Info("import summary", slog.Int("imported", imported), slog.Int("skipped", skipped))
	return nil
}

// parseFiles decodes every export concurrently, keeping the file order.
func parseFiles(ctx context.Context, files []string, parallel int) ([][]order.Order, error) {
	out := make([][]order.Order, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := openExport(path)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			orders, err := decodeExport(r)
			if err != nil {
				return errors.Wrapf(err, "parse %s", path)
			}
			slog.Info("file parsed", slog.String("file", path), slog.Int("orders", len(orders)))
			out[i] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
