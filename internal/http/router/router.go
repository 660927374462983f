package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/crewsight/crewsight/internal/health"
	"github.com/crewsight/crewsight/internal/http/handler"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/service"
)

type Dependencies struct {
	SetupHandler    *handler.SetupHandler
	AuthHandler     *handler.AuthHandler
	ActivityHandler *handler.ActivityHandler
	SessionHandler  *handler.SessionHandler
	LogHandler      *handler.LogHandler
	AdminHandler    *handler.AdminHandler
	Resolver        *service.IdentityResolver

	CORSOrigins           []string
	APIRateLimitRPM       int
	LogIngestRateLimitRPM int
	// GlobalRateLimiter and LogRateLimiter override the default local
	// limiters, typically with a redis-backed one.
	GlobalRateLimiter func(http.Handler) http.Handler
	LogRateLimiter    func(http.Handler) http.Handler
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	logLimiter := dep.LogRateLimiter
	if logLimiter == nil {
		logLimiter = middleware.NewRateLimiterWith(
			middleware.NewLocalLimiter(),
			dep.LogIngestRateLimitRPM,
			time.Minute,
			middleware.FailClosed,
			"log_ingest",
			middleware.BearerOrIPKey,
		).Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "dependencies are not ready")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", handler.VersionInfo)

		r.Get("/setup", dep.SetupHandler.Status)
		r.Post("/setup", dep.SetupHandler.Create)

		r.Post("/auth/login", dep.AuthHandler.Login)
		r.With(middleware.CSRF).Post("/auth/logout", dep.AuthHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(dep.Resolver))

			r.Get("/activity", dep.ActivityHandler.ByUser)

			r.Post("/sessions/start", dep.SessionHandler.Start)
			r.Post("/sessions/{id}/heartbeat", dep.SessionHandler.Heartbeat)
			r.Post("/sessions/{id}/end", dep.SessionHandler.End)
			r.Get("/sessions/{id}/activities", dep.SessionHandler.Activities)

			r.With(logLimiter).Post("/logs", dep.LogHandler.Submit)

			r.Get("/admin/users", dep.AdminHandler.ListUsers)
			r.Get("/admin/repos", dep.AdminHandler.ListRepos)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/admin/logs", dep.AdminHandler.BrowseLogs)
				r.With(middleware.CSRF).Delete("/admin/logs", dep.AdminHandler.PruneLogs)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
