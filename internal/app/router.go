package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/pages"
	"github.com/icarus-art/icarus/internal/platform/httpx"
	"github.com/icarus-art/icarus/internal/posts"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/waitlist"
	"github.com/icarus-art/icarus/jobs"
	"github.com/icarus-art/icarus/web"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	AccountService  *accounts.Service
	AccountsHandler *accounts.Handler
	WaitlistHandler *waitlist.Handler
	PostsHandler    *posts.Handler
	PagesHandler    *pages.Handler
	Metrics         *observability.Metrics
	HealthChecks    map[string]HealthCheck
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with Icarus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:           params.Logger,
		Config:           params.Config,
		SessionManager:   params.SessionManager,
		IdentityResolver: params.AccountService,
		Metrics:          params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", healthHandler(params.HealthChecks))
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		params.AccountsHandler.MountRoutes(r)
		params.WaitlistHandler.MountAPI(r)
		params.PostsHandler.MountRoutes(r)
	})
	params.WaitlistHandler.MountSubmit(r)

	r.Group(func(r chi.Router) {
		r.Use(CSRFMiddleware(params.CSRFManager, params.Logger))
		params.PagesHandler.MountRoutes(r)
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r) {
			httpx.Fail(w, http.StatusNotFound, "Not found")
			return
		}
		params.PagesHandler.NotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r) {
			httpx.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.JSON(w, code, status)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
