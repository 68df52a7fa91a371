// Package http wires the feature handlers into one chi router behind the
// shared middleware chain.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/audit"
	"docvault/internal/document"
	"docvault/internal/identity"
	"docvault/internal/platform/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Identity  *identity.Handler
	Documents *document.Handler
	Audit     *audit.Handler
	Tokens    middleware.TokenValidator
	Subjects  middleware.SubjectResolver
	Logger    *slog.Logger
}

// NewRouter builds the full route tree. Route groups nest from bare bearer
// auth through verified accounts up to admin.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Identity.RegisterPublic(r)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(deps.Tokens, deps.Subjects, deps.Logger))

		deps.Identity.RegisterProtected(protected)
		deps.Audit.RegisterProtected(protected)

		protected.Group(func(verified chi.Router) {
			verified.Use(middleware.RequireVerified(deps.Logger))
			deps.Identity.RegisterVerified(verified)
			deps.Documents.Register(verified)
		})

		protected.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(deps.Logger))
			deps.Identity.RegisterAdmin(admin)
			deps.Audit.RegisterAdmin(admin)
		})
	})

	return r
}
