package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/common/validation"
	"github.com/frahmantamala/gym-membership/internal/settlement"
	"github.com/frahmantamala/gym-membership/internal/transport"
)

// RedirectPages are the member-facing pages the redirect callback lands on.
type RedirectPages struct {
	Success string
	Failure string
	Pending string
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Pages   RedirectPages
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, pages RedirectPages) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Pages:       pages,
	}
}

// HandleRedirect handles GET /payments/gateway/redirect. The query string is
// only a hint: the outcome always comes from a status check.
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if appErr := validation.ValidateOrderID(orderID); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	target := h.Pages.Pending
	res, err := h.Service.Resolve(r.Context(), orderID)
	switch {
	case err != nil:
		h.Logger.Warn("redirect could not resolve order", "order_id", orderID, "error", err)
	case res.Status == settlement.StatusSettled || res.Status == settlement.StatusAlreadySettled:
		target = h.Pages.Success
	case res.Status == settlement.StatusFailed || res.Status == settlement.StatusNotFound:
		target = h.Pages.Failure
	}

	http.Redirect(w, r, withOrderID(target, orderID), http.StatusFound)
}

// GetStatus handles GET /payments/{orderId}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Status(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Resolve handles POST /payments/{orderId}/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Resolve(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toResolveResponse(res))
}

// Refund handles POST /payments/{orderId}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
			return
		}
	}
	if err := req.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.Refund(r.Context(), chi.URLParam(r, "orderId"), req.Amount)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func withOrderID(target, orderID string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}
