package identity

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/pulseboard/pulseboard/internal/platform/httpx"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	directory Directory
	tokens    *TokenStore
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, directory Directory, tokens *TokenStore) *Handler {
	return &Handler{
		logger:    logger,
		directory: directory,
		tokens:    tokens,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Identity struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"full_name,omitempty"`
	} `json:"identity"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	ident, err := h.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(r.Context(), ident.ID)
	if err != nil {
		h.logger.Error("issue token failed", slog.String("identity_id", ident.ID.String()), slog.Any("error", err))
		httpx.RespondError(w, shared.ErrStoreUnavailable)
		return
	}

	var resp loginResponse
	resp.Token = token
	resp.Identity.ID = ident.ID.String()
	resp.Identity.Email = ident.Email
	resp.Identity.FullName = ident.Metadata.FullName
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if err := h.tokens.Revoke(r.Context(), token); err != nil {
			h.logger.Warn("revoke token failed", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
