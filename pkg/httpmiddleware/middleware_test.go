package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, body []byte) (int, string) {
	t.Helper()
	var (
		code int
		msg  string
	)
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Int()
		case "message":
			msg, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	require.NoError(t, err)
	return code, msg
}

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestRateLimit(t *testing.T) {
	l := NewLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	h := l.Middleware()(okHandler())

	req := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		return r
	}

	for range 2 {
		rec := serve(h, req("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve(h, req("10.0.0.1:9999"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	code, msg := errorBody(t, rec.Body.Bytes())
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", msg)

	// Other clients have their own bucket.
	rec = serve(h, req("10.0.0.2:9999"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_CustomKey(t *testing.T) {
	l := NewLimiter(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Kiosk") },
	})
	h := l.Middleware()(okHandler())

	r1 := httptest.NewRequest(http.MethodGet, "/", nil)
	r1.Header.Set("X-Kiosk", "a")
	assert.Equal(t, http.StatusOK, serve(h, r1).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, r1).Code)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.Header.Set("X-Kiosk", "b")
	assert.Equal(t, http.StatusOK, serve(h, r2).Code)
}

func TestLimiter_Evict(t *testing.T) {
	l := NewLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	l.bucket("a", now.Add(-2*time.Minute))
	l.bucket("b", now)

	assert.Equal(t, 1, l.Evict(now))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "b")
}

func TestRateLimit_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := RateLimit(ctx, RateLimitConfig{})(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "ForwardedFor", headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, remote: "10.0.0.9:80", want: "203.0.113.1"},
		{name: "RealIP", headers: map[string]string{"X-Real-IP": "203.0.113.7"}, remote: "10.0.0.9:80", want: "203.0.113.7"},
		{name: "RemoteAddr", remote: "192.0.2.4:5555", want: "192.0.2.4"},
		{name: "NoPort", remote: "192.0.2.4", want: "192.0.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), InjectLogger(zap.New(core)), Recovery())

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	code, _ := errorBody(t, rec.Body.Bytes())
	assert.Equal(t, http.StatusInternalServerError, code)

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/api/config", entries[0].ContextMap()["path"])
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "kiosk-7")
	rec = serve(h, r)
	assert.Equal(t, "kiosk-7", seen)
	assert.Equal(t, "kiosk-7", rec.Header().Get(RequestIDHeader))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	serve(h, r)
	assert.Len(t, seen, 36)

	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:  []string{"https://Shop.example"},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        600,
	})(okHandler())

	t.Run("Preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		r.Header.Set("Origin", "https://shop.example")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		r.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := serve(h, r)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://Shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	})

	t.Run("Actual", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/config", nil)
		r.Header.Set("Origin", "https://shop.example")
		rec := serve(h, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://Shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, RequestIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))
		assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	})

	t.Run("Disallowed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		r.Header.Set("Origin", "https://evil.example")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := serve(h, r)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Wildcard", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://any.example")
		rec := serve(CORS(CORSConfig{})(okHandler()), r)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRoute(r.Context(), "GET /api/orders/{id}")
		zctx.From(r.Context()).Info("Handling")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	})
	h := Wrap(inner, RequestID(), InjectLogger(zap.New(core)), LogRequests())

	r := httptest.NewRequest(http.MethodGet, "/api/orders/WSD1", nil)
	r.Header.Set(RequestIDHeader, "req-1")
	serve(h, r)

	handling := logs.FilterMessage("Handling").All()
	require.Len(t, handling, 1)
	assert.Equal(t, "req-1", handling[0].ContextMap()["request_id"])

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	fields := e.ContextMap()
	assert.Equal(t, "GET /api/orders/{id}", fields["route"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, int64(2), fields["bytes"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestLogRequests_FallbackRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Wrap(okHandler(), InjectLogger(zap.New(core)), LogRequests())

	serve(h, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "GET /nowhere", entries[0].ContextMap()["route"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}
