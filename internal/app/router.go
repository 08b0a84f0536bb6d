package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/permission"
	"github.com/pulseboard/pulseboard/internal/profile"
	"github.com/pulseboard/pulseboard/internal/provision"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Authenticator     identity.Authenticator
	AuthHandler       *identity.Handler
	PermissionHandler *permission.Handler
	ProvisionHandler  *provision.Handler
	ProfileHandler    *profile.Handler
}

// NewRouter constructs the chi.Router with Pulseboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Bootstrap gate: reachable before any account exists.
	r.Route("/setup", params.ProvisionHandler.MountSetupRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.Authenticator.Require)

		r.Route("/me", func(r chi.Router) {
			params.PermissionHandler.MountRoutes(r)
			params.ProfileHandler.MountRoutes(r)
		})

		r.Route("/users", params.ProvisionHandler.MountUserRoutes)
	})

	return r
}
