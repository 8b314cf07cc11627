// Package api wires the HTTP surface: route table, per-route gates and the
// upload presign handler.
package api

import (
	"net/http"

	"github.com/devfolio/backend/internal/auth"
	"github.com/devfolio/backend/internal/blog"
	"github.com/devfolio/backend/internal/health"
	"github.com/devfolio/backend/internal/middleware"
	"github.com/devfolio/backend/internal/projects"
	"github.com/devfolio/backend/internal/users"
)

type Router struct {
	mux *http.ServeMux

	tokens          *auth.TokenService
	authHandlers    *auth.Handlers
	blogHandlers    *blog.Handlers
	projectHandlers *projects.Handlers
	userHandlers    *users.Handlers
	uploadHandlers  *UploadHandlers
	healthHandler   *health.Handler
	metricsHandler  http.HandlerFunc

	// authLimiter throttles credential endpoints harder than the general
	// limit applied in the outer chain.
	authLimiter *middleware.RateLimiter
}

type RouterConfig struct {
	Tokens          *auth.TokenService
	AuthHandlers    *auth.Handlers
	BlogHandlers    *blog.Handlers
	ProjectHandlers *projects.Handlers
	UserHandlers    *users.Handlers
	UploadHandlers  *UploadHandlers
	HealthHandler   *health.Handler
	MetricsHandler  http.HandlerFunc
	AuthLimiter     *middleware.RateLimiter
}

func NewRouter(cfg *RouterConfig) *Router {
	r := &Router{
		mux:             http.NewServeMux(),
		tokens:          cfg.Tokens,
		authHandlers:    cfg.AuthHandlers,
		blogHandlers:    cfg.BlogHandlers,
		projectHandlers: cfg.ProjectHandlers,
		userHandlers:    cfg.UserHandlers,
		uploadHandlers:  cfg.UploadHandlers,
		healthHandler:   cfg.HealthHandler,
		metricsHandler:  cfg.MetricsHandler,
		authLimiter:     cfg.AuthLimiter,
	}
	r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) setupRoutes() {
	// Operational endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Liveness)
	r.mux.HandleFunc("GET /health/ready", r.healthHandler.Readiness)
	if r.metricsHandler != nil {
		r.mux.HandleFunc("GET /metrics", r.metricsHandler)
	}

	// Auth routes (no auth required, tighter rate limit)
	r.mux.HandleFunc("POST /api/auth/register", r.withAuthLimit(r.authHandlers.Register))
	r.mux.HandleFunc("POST /api/auth/login", r.withAuthLimit(r.authHandlers.Login))
	r.mux.HandleFunc("POST /api/auth/refresh", r.withAuthLimit(r.authHandlers.Refresh))

	// Auth routes (auth required)
	r.mux.HandleFunc("POST /api/auth/logout", r.withAuth(r.authHandlers.Logout))
	r.mux.HandleFunc("GET /api/auth/profile", r.withAuth(r.authHandlers.GetProfile))
	r.mux.HandleFunc("PUT /api/auth/profile", r.withAuth(r.authHandlers.UpdateProfile))
	r.mux.HandleFunc("PUT /api/auth/change-password", r.withAuth(r.authHandlers.ChangePassword))

	// User management (admin, except single-user read which allows self)
	r.mux.HandleFunc("GET /api/users", r.withAdmin(r.userHandlers.List))
	r.mux.HandleFunc("GET /api/users/{id}", r.withAuth(r.userHandlers.Get))
	r.mux.HandleFunc("PUT /api/users/{id}", r.withAdmin(r.userHandlers.Update))
	r.mux.HandleFunc("DELETE /api/users/{id}", r.withAdmin(r.userHandlers.Delete))

	// Blog: public reads, admin writes
	r.mux.HandleFunc("GET /api/blog", r.blogHandlers.List)
	r.mux.HandleFunc("GET /api/blog/admin", r.withAdmin(r.blogHandlers.ListAll))
	r.mux.HandleFunc("GET /api/blog/{slug}", r.blogHandlers.GetBySlug)
	r.mux.HandleFunc("POST /api/blog", r.withAdmin(r.blogHandlers.Create))
	r.mux.HandleFunc("PUT /api/blog/{id}", r.withAdmin(r.blogHandlers.Update))
	r.mux.HandleFunc("DELETE /api/blog/{id}", r.withAdmin(r.blogHandlers.Delete))
	r.mux.HandleFunc("PATCH /api/blog/{id}/publish", r.withAdmin(r.blogHandlers.TogglePublish))

	// Projects: public reads, admin writes
	r.mux.HandleFunc("GET /api/projects", r.projectHandlers.List)
	r.mux.HandleFunc("GET /api/projects/{slug}", r.projectHandlers.GetBySlug)
	r.mux.HandleFunc("POST /api/projects", r.withAdmin(r.projectHandlers.Create))
	r.mux.HandleFunc("PUT /api/projects/{id}", r.withAdmin(r.projectHandlers.Update))
	r.mux.HandleFunc("DELETE /api/projects/{id}", r.withAdmin(r.projectHandlers.Delete))

	// Uploads (admin)
	if r.uploadHandlers != nil {
		r.mux.HandleFunc("POST /api/uploads/presign", r.withAdmin(r.uploadHandlers.Presign))
	}
}

func (r *Router) withAuth(next http.HandlerFunc) http.HandlerFunc {
	gate := auth.Middleware(r.tokens)
	return func(w http.ResponseWriter, req *http.Request) {
		gate(next).ServeHTTP(w, req)
	}
}

func (r *Router) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	gate := auth.RequireAdmin(r.tokens)
	return func(w http.ResponseWriter, req *http.Request) {
		gate(next).ServeHTTP(w, req)
	}
}

func (r *Router) withAuthLimit(next http.HandlerFunc) http.HandlerFunc {
	if r.authLimiter == nil {
		return next
	}
	return func(w http.ResponseWriter, req *http.Request) {
		r.authLimiter.Middleware(next).ServeHTTP(w, req)
	}
}
