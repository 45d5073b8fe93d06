// Package httpapi assembles the public HTTP surface from the module handlers.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditrisk/internal/platform/metrics"
	adminmw "creditrisk/pkg/platform/middleware/admin"
	"creditrisk/pkg/platform/middleware/metadata"
	"creditrisk/pkg/platform/middleware/requestid"
	"creditrisk/pkg/platform/middleware/requesttime"
	"creditrisk/pkg/platform/middleware/version"
)

// Module is a handler group that can be mounted on a router.
type Module interface {
	Register(r chi.Router)
}

// ScoringModule separates quota-guarded routes from free ones.
type ScoringModule interface {
	RegisterScoring(r chi.Router)
	RegisterReadOnly(r chi.Router)
}

// Deps collects everything the router mounts. Optional pieces may be nil.
type Deps struct {
	Logger         *slog.Logger
	Gatherer       prometheus.Gatherer
	Metrics        *metrics.Metrics
	Decision       ScoringModule
	Quota          func(http.Handler) http.Handler
	Pricing        Module
	QuotaAdmin     interface{ RegisterAdmin(r chi.Router) }
	Admin          Module
	AdminToken     string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter wires the middleware chain and every endpoint under /api/v1.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(instrument(d.Metrics))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders: []string{
				"X-Request-ID", "Retry-After",
				"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-RateLimit-Tier",
			},
			MaxAge: 300,
		}))
	}

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(version.ExtractVersion(version.V1))
		if d.RequestTimeout > 0 {
			v1.Use(chimw.Timeout(d.RequestTimeout))
		}

		if d.Decision != nil {
			v1.Group(func(scoring chi.Router) {
				if d.Quota != nil {
					scoring.Use(d.Quota)
				}
				d.Decision.RegisterScoring(scoring)
			})
			d.Decision.RegisterReadOnly(v1)
		}
		if d.Pricing != nil {
			d.Pricing.Register(v1)
		}

		v1.Group(func(admin chi.Router) {
			admin.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
			if d.Admin != nil {
				d.Admin.Register(admin)
			}
			if d.QuotaAdmin != nil {
				d.QuotaAdmin.RegisterAdmin(admin)
			}
		})
	})

	return r
}

// instrument records request counts and latency by chi route pattern so
// notice ids do not explode label cardinality.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			m.IncrementInFlight()
			defer func() {
				m.DecrementInFlight()
				route := ""
				if rc := chi.RouteContext(r.Context()); rc != nil {
					route = rc.RoutePattern()
				}
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				m.ObserveRequest(route, r.Method, status, time.Since(start))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
