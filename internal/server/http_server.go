package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/config"
)

// Registrar is a common interface for all HTTP service registrars.
type Registrar interface {
	Mount(r chi.Router)
}

// NewRouter builds the chi router with middleware, operational endpoints, and
// all provided services mounted.
func NewRouter(appCtx *app.AppContext, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", healthHandler(appCtx))
	r.Handle("/metrics", promhttp.Handler())

	for _, reg := range registrars {
		reg.Mount(r)
	}

	return r
}

// Start boots the HTTP server and blocks until it exits.
func Start(cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func healthHandler(appCtx *app.AppContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := appCtx.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
			return
		}
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			// cache being down degrades reads, it does not take the service down
			RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "cache": "unreachable"})
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
