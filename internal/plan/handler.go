package plan

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/auth"
	"github.com/frahmantamala/gym-membership/internal/transport"
)

type ServiceAPI interface {
	ListWithPayable(ctx context.Context, memberID int64, now time.Time) ([]PlanResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Now     internal.Clock
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, now internal.Clock) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Now:         now,
	}
}

func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	plans, err := h.Service.ListWithPayable(r.Context(), user.ID, h.Now())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PlansResponse{Plans: plans})
}
