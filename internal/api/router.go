package api

import (
	"net/http"

	"github.com/ashureev/planbridge/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig collects the handlers and policies served by NewRouter.
type RouterConfig struct {
	Sessions       *SessionHandler
	Generate       *GenerateHandler
	Health         *HealthHandler
	AllowedOrigins []string
	// GenerateLimit throttles the generate routes. Nil disables it.
	GenerateLimit func(http.Handler) http.Handler
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if cfg.AccessLog {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	cfg.Health.RegisterHealth(r)
	cfg.Sessions.RegisterRoutes(r)

	var limits []func(http.Handler) http.Handler
	if cfg.GenerateLimit != nil {
		limits = append(limits, cfg.GenerateLimit)
	}
	cfg.Generate.RegisterRoutes(r, limits...)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusNotFound, "Risorsa non trovata")
	})

	return r
}
