package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/hodl-ledger/internal/api/handlers"
	"github.com/baharkarakas/hodl-ledger/internal/auth"
	"github.com/baharkarakas/hodl-ledger/internal/config"
	"github.com/baharkarakas/hodl-ledger/internal/metrics"
	"github.com/baharkarakas/hodl-ledger/internal/middleware"
	"github.com/baharkarakas/hodl-ledger/internal/services"
)

func NewRouter(cfg config.Config, tm *auth.TokenManager, ts *services.TransferService, ss *services.ScoreService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(tm, cfg.IngestClientID, cfg.IngestClientSecretHash)
	xferH := handlers.NewTransferHandler(ts)
	acctH := handlers.NewAccountHandler(ss)
	am := middleware.NewAuthMiddleware(tm)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/token", authH.Token)
		r.Post("/auth/refresh", authH.Refresh)

		// ---------- transfers ----------
		r.Route("/transfers", func(r chi.Router) {
			r.With(am.Auth, middleware.RequireRole(auth.RoleIngest)).Post("/", xferH.Create)
			r.Get("/", xferH.List)
			r.Get("/{id}", xferH.Get)
		})

		// ---------- accounts & scores ----------
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", acctH.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", acctH.Get)
				r.Get("/checkpoints", acctH.Checkpoints)
				r.Get("/metric", acctH.Metric)
				r.Get("/ratio", acctH.Ratio)
			})
		})
	})

	return r
}
