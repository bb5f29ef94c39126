package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quoteforge/quoteforge/internal/platform/httpx"
)

// Handler wires the SUPERADMIN endpoints. Role gating happens in the router;
// every route here assumes an elevated caller.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers admin routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/usage", h.usage)
	r.Post("/users/{id}/toggle", h.toggleAccess)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") == "remote" {
		usage, err := h.service.RemoteUsage(r.Context())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, usage)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Usage())
}

func (h *Handler) toggleAccess(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.ToggleAccess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"is_active": user.IsActive,
	})
}
