package http

import (
	"net/http"

	"github.com/atinyakov/TodoKeeper/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the TodoKeeper API.
//
// Routes:
//
//	GET    /healthz            → liveness probe
//	GET    /metrics            → Prometheus metrics from gatherer
//	POST   /api/auth/register  → authHandler.Register
//	POST   /api/auth/login     → authHandler.Login
//	POST   /api/auth/logout    → authHandler.Logout
//	GET    /api/todos          → todoHandler.List   (session required)
//	POST   /api/todos          → todoHandler.Create (session required)
//	PUT    /api/todos/{id}     → todoHandler.Update (session required)
//	DELETE /api/todos/{id}     → todoHandler.Delete (session required)
//
// Middleware chain (applied in order):
//  1. RequestID                : tags each request with an id
//  2. WithRequestLogging(logger): logs every request
//  3. Recoverer                : turns panics into 500s
//  4. AllowContentType         : rejects non-JSON bodies under /api
//  5. SessionAuth(verifier)    : guards the todos routes
func NewRouter(
	authHandler *AuthHandler,
	todoHandler *TodoHandler,
	verifier middleware.Verifier,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// Protected group: requires a valid session cookie
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(verifier))
			r.Get("/todos", todoHandler.List)
			r.Post("/todos", todoHandler.Create)
			r.Put("/todos/{id}", todoHandler.Update)
			r.Delete("/todos/{id}", todoHandler.Delete)
		})
	})

	return r
}
