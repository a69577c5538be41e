// Package httptransport assembles the HTTP surface: middleware chain, health
// and metrics endpoints, and the authenticated API routes.
package httptransport

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendancehandler "staffops/internal/attendance/handler"
	custodyhandler "staffops/internal/custody/handler"
	"staffops/internal/platform/metrics"
	"staffops/internal/platform/middleware"
	platformredis "staffops/internal/platform/redis"
)

// Deps carries everything the router needs. Optional fields (DB, Redis) are
// nil when the deployment runs without them; health reporting degrades
// gracefully.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	JWTValidator middleware.JWTValidator

	Attendance *attendancehandler.Handler
	Custody    *custodyhandler.Handler
	Tokens     *TokenIssuer

	DB    *sql.DB
	Redis *platformredis.Client
}

// New wires the full router. Health and metrics stay outside the auth
// boundary; everything else requires a valid bearer token.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestClock)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", healthHandler(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.Tokens != nil {
		r.With(middleware.ContentTypeJSON).Post("/auth/token", deps.Tokens.handleIssueToken)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		deps.Attendance.Register(api)
		deps.Custody.Register(api)
	})

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := `{"status":"ok"}`
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded","postgres":"down"}`
			}
		}
		if status == http.StatusOK && deps.Redis != nil {
			if err := deps.Redis.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded","redis":"down"}`
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
