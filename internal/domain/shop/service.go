package shop

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/warishayday/internal/domain/apperr"
)

// Service is the single entry point for reading and changing the shop
// configuration. Callers never mutate a loaded document in place; every
// change goes through Update or Replace.
type Service struct {
	store Store
	lg    *zap.Logger
}

// NewService creates a Service backed by store.
func NewService(store Store, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{store: store, lg: lg}
}

// Load returns the persisted configuration. On first run the defaults are
// written unless another caller stored a document first, and the stored
// document is returned. When the store cannot be reached Load logs the
// failure and returns the defaults so the storefront stays usable.
func (s *Service) Load(ctx context.Context) (*ShopConfig, error) {
	cfg, err := s.store.Get(ctx)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, ErrConfigNotFound):
		cfg, err = s.store.Init(ctx, Default())
		if err != nil {
			return nil, &apperr.TransportError{Op: "bootstrap shop config", Err: err}
		}
		s.lg.Info("Shop config initialized")
		return cfg, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		s.lg.Warn("Shop config unavailable, serving defaults", zap.Error(err))
		return Default(), nil
	}
}

// Update applies fn to the current configuration, validates the result and
// persists it atomically with respect to other updates and order id
// issuance.
func (s *Service) Update(ctx context.Context, fn func(cfg *ShopConfig) error) (*ShopConfig, error) {
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	cfg, err := s.store.Update(ctx, func(cfg *ShopConfig) error {
		if err := fn(cfg); err != nil {
			return err
		}
		return cfg.Validate()
	})
	if err != nil {
		if apperr.IsValidation(err) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		return nil, &apperr.TransportError{Op: "update shop config", Err: err}
	}
	return cfg, nil
}

// Replace stores next as the whole document. The persisted order counter is
// kept so a stale admin copy can never roll it back.
func (s *Service) Replace(ctx context.Context, next *ShopConfig) (*ShopConfig, error) {
	return s.Update(ctx, func(cfg *ShopConfig) error {
		cfg.ReplaceKeepingCounter(next)
		return nil
	})
}
