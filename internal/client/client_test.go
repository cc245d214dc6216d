package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/auth"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/handler"
	"github.com/xenking/warishayday/internal/storage/memory"
)

const testPIN = "2468"

var fixedNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.FixedZone("ICT", 7*60*60))

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	config := shop.NewService(store.Config(), nil)
	orders := order.NewService(config, store.Orders(),
		order.WithClock(func() time.Time { return fixedNow }),
		order.WithLocation(fixedNow.Location()),
	)
	verifier, err := auth.NewVerifier(testPIN, "pepper")
	require.NoError(t, err)

	h, err := handler.New(handler.Config{Now: func() time.Time { return fixedNow }}, config, orders, verifier)
	require.NoError(t, err)
	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL+"/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func barn() order.Request {
	return order.Request{
		CategoryID: "barn",
		Type:       shop.TypeSelected,
		Lines:      []order.Line{{Name: "สลัก", Quantity: 12}},
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("localhost")
	require.Error(t, err)
}

func TestClient_Storefront(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newServer(t))

	cfg, err := c.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, shop.Default().ShopName, cfg.ShopName)

	q, err := c.Quote(ctx, barn())
	require.NoError(t, err)
	assert.Equal(t, int64(30), q.Price)

	o, err := c.PlaceOrder(ctx, barn())
	require.NoError(t, err)
	assert.Equal(t, "WSD03250001", o.ID)

	_, err = c.Quote(ctx, order.Request{CategoryID: "nope", Type: shop.TypeMixed})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
}

func TestClient_Admin(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newServer(t))

	_, err := c.Orders(ctx, order.Filter{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)

	require.Error(t, c.Login(ctx, "9999"))
	require.NoError(t, c.Login(ctx, testPIN))
	assert.Len(t, c.Token(), 64)

	placed, err := c.PlaceOrder(ctx, barn())
	require.NoError(t, err)

	list, err := c.Orders(ctx, order.Filter{Status: order.StatusNew})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := c.Order(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.Lines, got.Lines)

	_, err = c.Order(ctx, "WSD99999999")
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := c.SetStatus(ctx, placed.ID, order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)

	summary, err := c.Dashboard(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(30), summary.Today)

	require.NoError(t, c.DeleteOrder(ctx, placed.ID))

	n, err := c.ClearCancelled(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClient_ConfigAdmin(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newServer(t))
	require.NoError(t, c.Login(ctx, testPIN))

	cfg, err := c.AddCategory(ctx, "mine", "เหมือง")
	require.NoError(t, err)
	assert.Contains(t, cfg.CategoryOrder, "mine")

	cfg, err = c.SetItems(ctx, "mine", []shop.Item{{Name: "พลั่ว"}})
	require.NoError(t, err)
	assert.Len(t, cfg.Items["mine"], 1)

	cfg, err = c.SetPrices(ctx, "mine", shop.PriceTable{Mixed: 90, Selected: 120, Pure: 150, Tray: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(12), cfg.Prices["mine"].Tray)

	cfg, err = c.SetCrossTray(ctx, 22)
	require.NoError(t, err)
	assert.Equal(t, int64(22), cfg.Prices[shop.CrossTableKey].Tray)

	cfg, err = c.RemoveCategory(ctx, "mine")
	require.NoError(t, err)
	assert.NotContains(t, cfg.CategoryOrder, "mine")

	cfg.ShopName = "Farm Depot"
	cfg, err = c.PutConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Farm Depot", cfg.ShopName)
}

func TestClient_TransportError(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)
	srv.Close()

	_, err := c.Config(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsTransport(err))
}

func TestResponseError(t *testing.T) {
	err := responseError(http.StatusUnprocessableEntity, []byte(`{"code":422,"message":"pin: must be at least 4 characters","field":"pin"}`))
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "pin", verr.Field)
	assert.Equal(t, "must be at least 4 characters", verr.Reason)

	err = responseError(http.StatusBadGateway, []byte("upstream down"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
}
