// Command shop-kiosk is a terminal storefront that walks customers through
// an order and places it through the API.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/xenking/warishayday/internal/client"
	"github.com/xenking/warishayday/internal/domain/shop"
)

func main() {
	var apiURL string
	flag.StringVar(&apiURL, "api", "http://localhost:8080", "API base URL (or WSD_API_URL env)")
	flag.Parse()
	if v := os.Getenv("WSD_API_URL"); v != "" && apiURL == "http://localhost:8080" {
		apiURL = v
	}

	lg := slog.New(slog.NewTextHandler(os.Stderr, nil))
	c, err := client.New(apiURL)
	if err != nil {
		lg.Error("invalid api url", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	k := &kiosk{
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
		config: configLoader(c, lg),
		placer: c,
		lg:     lg,
	}
	if err := k.run(ctx); err != nil && ctx.Err() == nil {
		lg.Error("kiosk stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// configLoader fetches the configuration for every new customer and falls
// back to the defaults while the API is unreachable.
func configLoader(c *client.Client, lg *slog.Logger) func(ctx context.Context) *shop.ShopConfig {
	return func(ctx context.Context) *shop.ShopConfig {
		cfg, err := c.Config(ctx)
		if err != nil {
			lg.Warn("config unavailable, using defaults", slog.String("error", err.Error()))
			return shop.Default()
		}
		return cfg
	}
}
