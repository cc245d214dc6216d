package httpmiddleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig describes the cross-origin policy. The storefront and admin
// pages may be served from another origin than the API.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string `yaml:"allow_origins"`
	// AllowHeaders defaults to echoing Access-Control-Request-Headers.
	AllowHeaders []string `yaml:"allow_headers"`
	// ExposeHeaders lists response headers readable by scripts.
	ExposeHeaders []string `yaml:"expose_headers"`
	// MaxAge is the preflight cache lifetime in seconds; zero omits it.
	MaxAge int `yaml:"max_age"`
}

var corsMethods = strings.Join([]string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
}, ", ")

type corsPolicy struct {
	any     bool
	origins map[string]string
	headers string
	expose  string
	maxAge  string
}

func (p *corsPolicy) origin(origin string) string {
	if p.any {
		return "*"
	}
	return p.origins[strings.ToLower(origin)]
}

// CORS answers preflight requests and decorates actual cross-origin
// responses. Credentials are not supported: admin auth uses a bearer token.
func CORS(cfg CORSConfig) Middleware {
	p := &corsPolicy{
		any:     len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*"),
		origins: make(map[string]string, len(cfg.AllowOrigins)),
		headers: strings.Join(cfg.AllowHeaders, ", "),
		expose:  strings.Join(cfg.ExposeHeaders, ", "),
	}
	for _, o := range cfg.AllowOrigins {
		p.origins[strings.ToLower(o)] = o
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !p.any {
				h.Add("Vary", "Origin")
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := p.origin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					h.Set("Access-Control-Allow-Origin", allow)
					h.Set("Access-Control-Allow-Methods", corsMethods)
					headers := p.headers
					if headers == "" {
						headers = r.Header.Get("Access-Control-Request-Headers")
					}
					if headers != "" {
						h.Set("Access-Control-Allow-Headers", headers)
					}
					if p.maxAge != "" {
						h.Set("Access-Control-Max-Age", p.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
