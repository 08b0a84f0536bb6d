package permission

import (
	"log/slog"
	"net/http"

	"github.com/pulseboard/pulseboard/internal/platform/httpx"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequirePage ensures the current identity may access the given page.
// A failed grant load denies with 403; it never falls through open.
func (m Middleware) RequirePage(page Page) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identityID, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			set, err := m.Service.Load(r.Context(), identityID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("page guard load failed", slog.String("page", string(page)), slog.Any("error", err))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			if !set.CanAccessPage(page) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates privileged operations on the stored admin role row,
// never on a client-supplied claim.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identityID, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		isAdmin, err := m.Service.HasRole(r.Context(), identityID, RoleAdmin)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("admin guard check failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
			}
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		if !isAdmin {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
