package provision

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/internal/permission"
	"github.com/pulseboard/pulseboard/internal/platform/httpx"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// Handler wires HTTP endpoints for account provisioning and bootstrap.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   permission.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard permission.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountSetupRoutes registers the unauthenticated bootstrap routes.
func (h *Handler) MountSetupRoutes(r chi.Router) {
	r.Get("/status", h.setupStatus)
	r.Post("/admin", h.createFirstAdmin)
}

// MountUserRoutes registers user management routes. Listing follows the
// users page grant; every mutation requires the stored admin role.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePage(permission.PageUsers))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Post("/", h.createUser)
		r.Delete("/{id}", h.deleteUser)
		r.Post("/{id}/password", h.resetPassword)
	})
}

type setupStatusResponse struct {
	AdminExists bool `json:"admin_exists"`
}

func (h *Handler) setupStatus(w http.ResponseWriter, r *http.Request) {
	exists, err := h.service.AdminExists(r.Context())
	if err != nil {
		h.logger.Error("admin check failed", slog.Any("error", err))
		httpx.RespondError(w, shared.ErrStoreUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, setupStatusResponse{AdminExists: exists})
}

type provisionResponse struct {
	Success        bool   `json:"success"`
	IdentityID     string `json:"identity_id,omitempty"`
	Email          string `json:"email,omitempty"`
	Recovered      bool   `json:"recovered,omitempty"`
	RecoveredCount int    `json:"recovered_count,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

func (h *Handler) createFirstAdmin(w http.ResponseWriter, r *http.Request) {
	var in FirstAdminInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	result, err := h.service.FirstAdmin(r.Context(), in)
	if err != nil {
		h.respondProvisionError(w, result, err)
		return
	}
	if result.Recovered {
		httpx.JSON(w, http.StatusOK, provisionResponse{
			Success:        true,
			Recovered:      true,
			RecoveredCount: result.RecoveredCount,
		})
		return
	}
	httpx.JSON(w, http.StatusCreated, successResponse(result))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	result, err := h.service.Provision(r.Context(), in)
	if err != nil {
		h.respondProvisionError(w, result, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, successResponse(result))
}

// respondProvisionError distinguishes the partial case: the identity exists,
// so the caller is told setup is incomplete rather than shown a failure.
func (h *Handler) respondProvisionError(w http.ResponseWriter, result *Result, err error) {
	var partial *shared.PartialProvisioningError
	if errors.As(err, &partial) && result != nil && result.Identity != nil {
		httpx.JSON(w, http.StatusOK, provisionResponse{
			Success:    false,
			IdentityID: result.Identity.ID.String(),
			Email:      result.Identity.Email,
			Warning:    "account created but setup is incomplete; run recovery to finish",
		})
		return
	}
	httpx.RespondError(w, err)
}

func successResponse(result *Result) provisionResponse {
	resp := provisionResponse{Success: true}
	if result.Identity != nil {
		resp.IdentityID = result.Identity.ID.String()
		resp.Email = result.Identity.Email
	}
	return resp
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts failed", slog.Any("error", err))
		httpx.RespondError(w, shared.ErrStoreUnavailable)
		return
	}
	if accounts == nil {
		accounts = []Account{}
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete account failed", slog.String("identity_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.service.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
