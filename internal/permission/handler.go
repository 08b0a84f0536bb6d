package permission

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulseboard/pulseboard/internal/platform/httpx"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// Handler exposes the caller's own permissions to the dashboard frontend.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.myPermissions)
}

type permissionsResponse struct {
	Role   Role         `json:"role"`
	Pages  []PageGrant  `json:"pages"`
	Charts []ChartGrant `json:"charts"`
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	identityID, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	set, err := h.service.Load(r.Context(), identityID)
	if err != nil {
		h.logger.Error("load permissions failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
		// Deny-all payload: the frontend renders nothing rather than erroring.
		httpx.JSON(w, http.StatusOK, permissionsResponse{Role: set.Role, Pages: []PageGrant{}, Charts: []ChartGrant{}})
		return
	}

	pages := make([]PageGrant, 0, len(set.Pages))
	for page, allowed := range set.Pages {
		pages = append(pages, PageGrant{IdentityID: identityID, Page: page, Allowed: allowed})
	}
	charts := set.Charts
	if charts == nil {
		charts = []ChartGrant{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: set.Role, Pages: pages, Charts: charts})
}
