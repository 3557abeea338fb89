package order

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/gym-membership/internal/auth"
	"github.com/frahmantamala/gym-membership/internal/transport"
)

type InitiatorAPI interface {
	Initiate(ctx context.Context, memberID, planID int64) (*Checkout, error)
}

type Handler struct {
	*transport.BaseHandler
	Initiator InitiatorAPI
}

func NewHandler(baseHandler *transport.BaseHandler, initiator InitiatorAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Initiator:   initiator,
	}
}

// Checkout handles POST /checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	checkout, err := h.Initiator.Initiate(r.Context(), user.ID, req.PlanID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:         checkout.OrderID,
		RedirectURL:     checkout.RedirectURL,
		Amount:          checkout.Amount.StringFixed(2),
		AdmissionWaived: checkout.AdmissionWaived,
	})
}
