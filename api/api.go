// Package api exposes the authentication service over HTTP: the Basic login
// scheme, the Bearer session scheme, and the user account endpoints.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/gatehouse/session"
	"github.com/jmcleod/gatehouse/user"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	users    *user.Manager
	sessions *session.Engine
	audit    *auditLogger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// New creates a new API instance.
func New(users *user.Manager, sessions *session.Engine, opts ...Option) *API {
	a := &API{
		users:    users,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Post("/session", a.Login)
	r.With(a.SessionMiddleware).Delete("/session", a.Logout)

	r.Post("/user", a.CreateUser)
	r.With(a.SessionMiddleware).Get("/user", a.GetUser)
	r.With(a.SessionMiddleware).Patch("/user", a.UpdateUser)
	r.With(a.SessionMiddleware).Delete("/user", a.DeleteUser)

	return r
}
