package member

import (
	"context"
	"net/http"

	"github.com/frahmantamala/gym-membership/internal/auth"
	"github.com/frahmantamala/gym-membership/internal/transport"
)

type ServiceAPI interface {
	Profile(ctx context.Context, id int64) (*Member, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentMember handles GET /members/me
func (h *Handler) GetCurrentMember(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	m, err := h.Service.Profile(r.Context(), user.ID)
	if err != nil {
		h.Logger.Error("GetCurrentMember: profile lookup failed", "user_id", user.ID, "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, m)
}
