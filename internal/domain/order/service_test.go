package order

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/pricing"
	"github.com/xenking/warishayday/internal/domain/shop"
)

// --- Mock implementations ---

type mockConfig struct {
	cfg *shop.ShopConfig
	err error
}

func (m *mockConfig) Load(_ context.Context) (*shop.ShopConfig, error) {
	return m.cfg, m.err
}

type mockOrderRepo struct {
	orders    map[string]*Order
	settings  shop.OrderSettings
	taken     map[string]bool
	createErr error
	listErr   error
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:   make(map[string]*Order),
		taken:    make(map[string]bool),
		settings: shop.Default().OrderSettings,
	}
}

func (m *mockOrderRepo) List(_ context.Context, f Filter) ([]Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Order
	for _, o := range m.orders {
		if f.Match(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, issue IssueFunc) error {
	if m.createErr != nil {
		return m.createErr
	}
	settings := m.settings
	for range MaxIssueAttempts {
		var id string
		id, settings = issue(settings)
		if m.taken[id] {
			continue
		}
		m.settings = settings
		o.ID = id
		cp := *o
		m.orders[id] = &cp
		m.taken[id] = true
		return nil
	}
	return &apperr.ConflictError{Resource: "order", ID: o.ID}
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return &apperr.ConflictError{Resource: "order", ID: id}
	}
	o.Status = to
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepo) DeleteByStatus(_ context.Context, status Status) (int, error) {
	n := 0
	for id, o := range m.orders {
		if o.Status == status {
			delete(m.orders, id)
			n++
		}
	}
	return n, nil
}

// --- Helpers ---

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func newTestService(repo *mockOrderRepo) *Service {
	return NewService(
		&mockConfig{cfg: shop.Default()},
		repo,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	)
}

func place(t *testing.T, svc *Service, req Request) *Order {
	t.Helper()
	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	return o
}

// --- Tests ---

func TestQuote(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantPrice int64
		wantLines []Line
	}{
		{
			name: "selected single tray",
			req: Request{
				CategoryID: "barn", DeclaredLimit: 50, Type: shop.TypeSelected,
				Lines: []Line{{Name: "สลัก", Quantity: 4}, {Name: "ไม้กระดาน", Quantity: 0}},
			},
			wantPrice: 15,
			wantLines: []Line{{Name: "สลัก", Quantity: 4}},
		},
		{
			name:      "mixed full limit",
			req:       Request{CategoryID: "silo", DeclaredLimit: 0, Type: shop.TypeMixed},
			wantPrice: 100,
			wantLines: []Line{{Name: MixedLineName, Quantity: pricing.MaxLimit}},
		},
		{
			name:      "mixed partial limit",
			req:       Request{CategoryID: "silo", DeclaredLimit: 70, Type: shop.TypeMixed},
			wantPrice: 30,
			wantLines: []Line{{Name: MixedLineName, Quantity: 19}},
		},
		{
			name: "duplicate lines merge",
			req: Request{
				CategoryID: "land", DeclaredLimit: 0, Type: shop.TypeSelected,
				Lines: []Line{{Name: "โฉนด", Quantity: 6}, {Name: "โฉนด", Quantity: 6}},
			},
			wantPrice: 30,
			wantLines: []Line{{Name: "โฉนด", Quantity: 12}},
		},
		{
			name: "cross uses items of every category",
			req: Request{
				CategoryID: "barn", DeclaredLimit: 0, Type: shop.TypeCross,
				Lines: []Line{{Name: "สลัก", Quantity: 5}, {Name: "ตะปู", Quantity: 10}},
			},
			wantPrice: 40,
			wantLines: []Line{{Name: "สลัก", Quantity: 5}, {Name: "ตะปู", Quantity: 10}},
		},
		{
			name: "train map pieces",
			req: Request{
				CategoryID: "train", DeclaredLimit: 0, Type: shop.TypeSelected,
				Lines: []Line{{Name: "โฉนด", Quantity: 3}, {Name: shop.MapPieceName, Quantity: 3}},
			},
			wantPrice: 35,
			wantLines: []Line{{Name: "โฉนด", Quantity: 3}, {Name: shop.MapPieceName, Quantity: 3}},
		},
	}

	svc := newTestService(newOrderRepo())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Quote(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, q.Price)
			assert.Equal(t, tt.wantLines, q.Lines)
		})
	}
}

func TestQuote_Validation(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantField string
	}{
		{
			name:      "unknown type",
			req:       Request{CategoryID: "barn", Type: "bulk"},
			wantField: "type",
		},
		{
			name:      "unknown category",
			req:       Request{CategoryID: "castle", Type: shop.TypeMixed},
			wantField: "category",
		},
		{
			name:      "limit out of range",
			req:       Request{CategoryID: "barn", DeclaredLimit: 90, Type: shop.TypeMixed},
			wantField: "limit",
		},
		{
			name: "item from another category",
			req: Request{
				CategoryID: "barn", Type: shop.TypeSelected,
				Lines: []Line{{Name: "ตะปู", Quantity: 1}},
			},
			wantField: "items",
		},
		{
			name: "over remaining limit",
			req: Request{
				CategoryID: "barn", DeclaredLimit: 80, Type: shop.TypeSelected,
				Lines: []Line{{Name: "สลัก", Quantity: 5}, {Name: "เทปกาว", Quantity: 5}},
			},
			wantField: "quantity",
		},
		{
			name: "pure with two items",
			req: Request{
				CategoryID: "barn", Type: shop.TypePure,
				Lines: []Line{{Name: "สลัก", Quantity: 1}, {Name: "เทปกาว", Quantity: 1}},
			},
			wantField: "quantity",
		},
		{
			name: "negative quantity",
			req: Request{
				CategoryID: "barn", Type: shop.TypeSelected,
				Lines: []Line{{Name: "สลัก", Quantity: -1}},
			},
			wantField: "quantity",
		},
		{
			name:      "no quantities",
			req:       Request{CategoryID: "barn", Type: shop.TypeSelected},
			wantField: "items",
		},
	}

	svc := newTestService(newOrderRepo())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Quote(context.Background(), tt.req)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestQuote_ConfigError(t *testing.T) {
	svc := NewService(&mockConfig{err: errors.New("boom")}, newOrderRepo())
	_, err := svc.Quote(context.Background(), Request{CategoryID: "barn", Type: shop.TypeMixed})
	require.Error(t, err)
}

func TestPlaceOrder(t *testing.T) {
	repo := newOrderRepo()
	svc := newTestService(repo)

	o := place(t, svc, Request{
		CategoryID: "barn", DeclaredLimit: 0, Type: shop.TypeSelected,
		Lines: []Line{{Name: "สลัก", Quantity: 12}},
	})

	assert.Equal(t, "WSD03250001", o.ID)
	assert.Equal(t, "โรงนา", o.Category)
	assert.Equal(t, "barn", o.CategoryID)
	assert.Equal(t, int64(30), o.Price)
	assert.Equal(t, StatusNew, o.Status)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Equal(t, 1, repo.settings.LastRunNumber)
	assert.Equal(t, "0325", repo.settings.CurrentDateCode)

	second := place(t, svc, Request{CategoryID: "silo", Type: shop.TypeMixed})
	assert.Equal(t, "WSD03250002", second.ID)
}

func TestPlaceOrder_ZeroPrice(t *testing.T) {
	cfg := shop.Default()
	cfg.Prices["barn"] = shop.PriceTable{}
	svc := NewService(&mockConfig{cfg: cfg}, newOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), Request{
		CategoryID: "barn", Type: shop.TypeSelected,
		Lines: []Line{{Name: "สลัก", Quantity: 1}},
	})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)
}

func TestPlaceOrder_SkipsTakenIDs(t *testing.T) {
	repo := newOrderRepo()
	repo.taken["WSD03250001"] = true
	repo.taken["WSD03250002"] = true
	svc := newTestService(repo)

	o := place(t, svc, Request{CategoryID: "barn", Type: shop.TypeMixed})
	assert.Equal(t, "WSD03250003", o.ID)
}

func TestPlaceOrder_Conflict(t *testing.T) {
	repo := newOrderRepo()
	for i := 1; i <= MaxIssueAttempts; i++ {
		repo.taken[fmt.Sprintf("WSD0325%04d", i)] = true
	}
	svc := newTestService(repo)

	_, err := svc.PlaceOrder(context.Background(), Request{CategoryID: "barn", Type: shop.TypeMixed})
	assert.True(t, apperr.IsConflict(err))
}

func TestPlaceOrder_CreateError(t *testing.T) {
	repo := newOrderRepo()
	repo.createErr = errors.New("db write failed")
	svc := newTestService(repo)

	_, err := svc.PlaceOrder(context.Background(), Request{CategoryID: "barn", Type: shop.TypeMixed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newOrderRepo()
	svc := newTestService(repo)

	a := place(t, svc, Request{CategoryID: "barn", Type: shop.TypeMixed})
	b := place(t, svc, Request{CategoryID: "silo", Type: shop.TypeMixed})

	err := svc.Delete(ctx, a.ID)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr, "new orders cannot be deleted")

	confirmed, err := svc.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = svc.Cancel(ctx, a.ID)
	require.ErrorAs(t, err, &verr, "confirmed orders are final")

	_, err = svc.Cancel(ctx, b.ID)
	require.NoError(t, err)

	cancelled, err := svc.List(ctx, Filter{Status: StatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, b.ID, cancelled[0].ID)

	n, err := svc.ClearCancelled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatus_NotFound(t *testing.T) {
	svc := newTestService(newOrderRepo())
	_, err := svc.Confirm(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_InvalidStatus(t *testing.T) {
	svc := newTestService(newOrderRepo())
	_, err := svc.List(context.Background(), Filter{Status: "archived"})
	assert.True(t, apperr.IsValidation(err))
}

func TestFilter_Match(t *testing.T) {
	o := &Order{ID: "WSD03250042", Status: StatusNew}
	assert.True(t, Filter{}.Match(o))
	assert.True(t, Filter{IDContains: "wsd0325"}.Match(o))
	assert.True(t, Filter{Status: StatusNew, IDContains: "42"}.Match(o))
	assert.False(t, Filter{Status: StatusConfirmed}.Match(o))
	assert.False(t, Filter{IDContains: "0425"}.Match(o))
}

func TestParseLegacyLine(t *testing.T) {
	tests := []struct {
		in      string
		want    Line
		wantErr bool
	}{
		{in: "สลัก x4", want: Line{Name: "สลัก", Quantity: 4}},
		{in: "สินค้าคละแบบ (Auto) x89", want: Line{Name: MixedLineName, Quantity: 89}},
		{in: "box x large x3", want: Line{Name: "box x large", Quantity: 3}},
		{in: "no quantity", wantErr: true},
		{in: "bad xA", wantErr: true},
		{in: " x3", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLegacyLine(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, legacyString(got))
	}
}

func legacyString(l Line) string {
	if l.Name == MixedLineName {
		l.Name = legacyMixedLineName
	}
	return l.String()
}

func TestCheckLines_MixedIgnoresLines(t *testing.T) {
	limit, err := pricing.DeriveLimit(80)
	require.NoError(t, err)
	assert.NoError(t, CheckLines(shop.TypeMixed, []Line{{Name: "x", Quantity: 500}}, limit))
}
