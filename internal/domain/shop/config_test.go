package shop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/warishayday/internal/domain/apperr"
)

func TestDecode_FillsMissingSections(t *testing.T) {
	cfg, err := Decode([]byte(`{"shopName":"Farm","orderSettings":{"prefix":"F","dateFormat":"0168","runDigits":3,"lastRunNumber":7,"currentDateCode":"0125"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Farm", cfg.ShopName)
	assert.Equal(t, DateMMYY, cfg.OrderSettings.DateFormat)
	assert.Equal(t, 7, cfg.OrderSettings.LastRunNumber)
	assert.Equal(t, Default().CategoryMeta, cfg.CategoryMeta)
	assert.Equal(t, Default().Prices, cfg.Prices)
	require.NoError(t, cfg.Validate())
}

func TestDateFormat_Legacy(t *testing.T) {
	tests := map[string]DateFormat{
		`"MMYY"`: DateMMYY,
		`"0168"`: DateMMYY,
		`""`:     DateMMYY,
		`"YYMM"`: DateYYMM,
		`"6801"`: DateYYMM,
	}
	for in, want := range tests {
		var f DateFormat
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, f, in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *ShopConfig)
		field  string
	}{
		{
			name:   "no categories",
			mutate: func(cfg *ShopConfig) { cfg.CategoryMeta = map[string]CategoryMeta{} },
			field:  "categoryMeta",
		},
		{
			name: "reserved category",
			mutate: func(cfg *ShopConfig) {
				cfg.CategoryMeta[CrossTableKey] = CategoryMeta{Label: "x"}
			},
			field: "categoryMeta",
		},
		{
			name:   "missing prices",
			mutate: func(cfg *ShopConfig) { delete(cfg.Prices, "barn") },
			field:  "prices",
		},
		{
			name:   "missing items",
			mutate: func(cfg *ShopConfig) { delete(cfg.Items, "barn") },
			field:  "items",
		},
		{
			name:   "missing cross table",
			mutate: func(cfg *ShopConfig) { delete(cfg.Prices, CrossTableKey) },
			field:  "prices",
		},
		{
			name:   "run digits",
			mutate: func(cfg *ShopConfig) { cfg.OrderSettings.RunDigits = 0 },
			field:  "ShopConfig.orderSettings.runDigits",
		},
		{
			name: "negative price",
			mutate: func(cfg *ShopConfig) {
				p := cfg.Prices["barn"]
				p.Tray = -1
				cfg.Prices["barn"] = p
			},
			field: "ShopConfig.prices[barn].tray",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			var verr *apperr.ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

type mockStore struct {
	cfg      *ShopConfig
	getErr   error
	putErr   error
	puts     int
	missOnce bool
}

func (m *mockStore) Get(_ context.Context) (*ShopConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.missOnce {
		m.missOnce = false
		return nil, ErrConfigNotFound
	}
	if m.cfg == nil {
		return nil, ErrConfigNotFound
	}
	return m.cfg.Clone(), nil
}

func (m *mockStore) Put(_ context.Context, cfg *ShopConfig) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.cfg = cfg.Clone()
	return nil
}

func (m *mockStore) Init(_ context.Context, cfg *ShopConfig) (*ShopConfig, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	if m.cfg == nil {
		m.puts++
		m.cfg = cfg.Clone()
	}
	return m.cfg.Clone(), nil
}

func (m *mockStore) Update(_ context.Context, fn func(cfg *ShopConfig) error) (*ShopConfig, error) {
	next := m.cfg.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.cfg = next
	return next.Clone(), nil
}

func TestService_LoadBootstraps(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, nil)

	cfg, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1, store.puts)

	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.puts)
}

func TestService_LoadKeepsConcurrentBootstrap(t *testing.T) {
	// Another caller initialized and edited the document between Get and Init.
	written := Default()
	written.ShopName = "Edited"
	written.OrderSettings.LastRunNumber = 7
	store := &mockStore{cfg: written, missOnce: true}

	cfg, err := NewService(store, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Edited", cfg.ShopName)
	assert.Equal(t, 7, cfg.OrderSettings.LastRunNumber)
	assert.Zero(t, store.puts)
}

func TestService_LoadFallsBack(t *testing.T) {
	svc := NewService(&mockStore{getErr: errors.New("connection refused")}, nil)
	cfg, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestService_LoadBootstrapFailure(t *testing.T) {
	svc := NewService(&mockStore{putErr: errors.New("read only")}, nil)
	_, err := svc.Load(context.Background())
	assert.True(t, apperr.IsTransport(err))
}

func TestService_Update(t *testing.T) {
	store := &mockStore{cfg: Default()}
	svc := NewService(store, nil)
	ctx := context.Background()

	cfg, err := svc.Update(ctx, func(cfg *ShopConfig) error {
		_, err := cfg.AddCategory("pond", "บ่อปลา")
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, cfg.CategoryMeta, "pond")

	_, err = svc.Update(ctx, func(cfg *ShopConfig) error {
		cfg.OrderSettings.RunDigits = 0
		return nil
	})
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 4, store.cfg.OrderSettings.RunDigits)

	_, err = svc.Update(ctx, func(cfg *ShopConfig) error { return cfg.RemoveCategory("castle") })
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestService_ReplaceKeepsCounter(t *testing.T) {
	current := Default()
	current.OrderSettings.LastRunNumber = 42
	current.OrderSettings.CurrentDateCode = "0325"
	store := &mockStore{cfg: current}
	svc := NewService(store, nil)

	stale := Default()
	stale.ShopName = "Renamed"
	stale.OrderSettings.Prefix = "NEW"

	cfg, err := svc.Replace(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", cfg.ShopName)
	assert.Equal(t, "NEW", cfg.OrderSettings.Prefix)
	assert.Equal(t, 42, cfg.OrderSettings.LastRunNumber)
	assert.Equal(t, "0325", cfg.OrderSettings.CurrentDateCode)
}
