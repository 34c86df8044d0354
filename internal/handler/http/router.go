package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/pkg/health"
	"github.com/utafrali/inkwell/pkg/middleware"
)

// Services groups the application services the router dispatches to.
type Services struct {
	Auth  AuthService
	Users UserService
	Blogs BlogService
}

// RouterOptions holds the optional surfaces of the router.
type RouterOptions struct {
	ServiceName     string
	RequestTimeout  time.Duration
	CORS            middleware.CORSConfig
	AuthRateLimiter *middleware.RateLimiter
	PprofEnabled    bool
	PprofAllowedIPs []string
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, logger *slog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.PrometheusMetrics(opts.ServiceName))
	r.Use(middleware.CORS(opts.CORS))
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if opts.PprofEnabled {
		middleware.RegisterPprof(r, opts.PprofAllowedIPs, logger)
	}

	authenticate := middleware.Auth(authenticator(svc.Auth))

	authHandler := NewAuthHandler(svc.Auth, logger)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		if opts.AuthRateLimiter != nil {
			r.Use(opts.AuthRateLimiter.Middleware(logger))
		}

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	userHandler := NewUserHandler(svc.Users, svc.Blogs, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authenticate)

		r.With(middleware.RequireRole(string(domain.RoleModerator), string(domain.RoleAdmin))).
			Get("/", userHandler.List)
		r.Get("/me", userHandler.Me)
		r.Get("/{id}", userHandler.Get)
		r.Patch("/{id}", userHandler.Update)
		r.Delete("/{id}", userHandler.Remove)
		r.Get("/{id}/blogs", userHandler.Blogs)
	})

	blogHandler := NewBlogHandler(svc.Blogs, logger)
	r.Route("/api/v1/blogs", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/", blogHandler.List)
		r.Post("/", blogHandler.Create)
		r.Get("/{id}", blogHandler.Get)
		r.Patch("/{id}", blogHandler.Update)
		r.Delete("/{id}", blogHandler.Remove)
	})

	return r
}
