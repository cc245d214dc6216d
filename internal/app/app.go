package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/warishayday/internal/domain/auth"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/handler"
	"github.com/xenking/warishayday/internal/storage/memory"
	"github.com/xenking/warishayday/internal/storage/postgres"
	"github.com/xenking/warishayday/pkg/health"
	"github.com/xenking/warishayday/pkg/httpmiddleware"
)

type stores struct {
	config shop.Store
	orders order.Repository
	close  func()
}

func openStores(ctx context.Context, cfg *Config, healthSvc *health.Health) (*stores, error) {
	if cfg.Storage == StorageMemory {
		mem := memory.New()
		return &stores{config: mem.Config(), orders: mem.Orders(), close: func() {}}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	return &stores{
		config: postgres.NewConfigRepository(pool),
		orders: postgres.NewOrderRepository(pool),
		close:  pool.Close,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCheck(10000))

	st, err := openStores(ctx, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer st.close()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return errors.Wrap(err, "load time zone")
	}
	verifier, err := auth.NewVerifier(cfg.AdminPIN, cfg.TokenPepper)
	if err != nil {
		return errors.Wrap(err, "admin pin")
	}
	if cfg.TokenPepper == "" {
		lg.Warn("Token pepper is empty, session tokens derive from the PIN alone")
	}

	configService := shop.NewService(st.config, lg.Named("shop"))
	orderService := order.NewService(configService, st.orders,
		order.WithLocation(loc),
		order.WithLogger(lg.Named("order")),
	)

	loginLimit := httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
		Max:    cfg.LoginRateLimit.Max,
		Window: cfg.LoginRateLimit.Window,
	})
	h, err := handler.New(handler.Config{
		MaxBodyBytes:  cfg.MaxBodyBytes,
		MeterProvider: m.MeterProvider(),
		LoginLimit:    loginLimit,
	}, configService, orderService, verifier)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:  cfg.CORS.Origins,
				AllowHeaders:  []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
				MaxAge:        86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.Instrument("warishayday-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
