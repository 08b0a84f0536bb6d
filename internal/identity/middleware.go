package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pulseboard/pulseboard/internal/platform/httpx"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// Authenticator resolves Bearer tokens into an identity id on the request
// context. Requests without a valid token are rejected with 401.
type Authenticator struct {
	Tokens *TokenStore
	Logger *slog.Logger
}

// Require wraps handlers that need an authenticated caller.
func (a Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		identityID, err := a.Tokens.Verify(r.Context(), token)
		if err != nil {
			if a.Logger != nil && !errors.Is(err, shared.ErrUnauthorized) {
				a.Logger.Warn("token verification failed", slog.Any("error", err))
			}
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), identityID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
