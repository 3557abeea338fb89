package subscription

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/auth"
	"github.com/frahmantamala/gym-membership/internal/transport"
)

type ServiceAPI interface {
	Current(ctx context.Context, memberID int64, now time.Time) (*CurrentResponse, error)
}

type SweeperAPI interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Sweeper SweeperAPI
	Now     internal.Clock
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, sweeper SweeperAPI, now internal.Clock) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Sweeper:     sweeper,
		Now:         now,
	}
}

// GetCurrent handles GET /subscriptions/me
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	current, err := h.Service.Current(r.Context(), user.ID, h.Now())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, current)
}

// RunSweep handles POST /subscriptions/sweep
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.Sweeper.Sweep(r.Context(), h.Now())
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("expiry sweep failed", err))
		return
	}
	h.WriteJSON(w, http.StatusOK, SweepResponse{Expired: n})
}
