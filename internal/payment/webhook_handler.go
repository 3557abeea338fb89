package payment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/checksum"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/transport"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

const maxWebhookBytes = 64 << 10

var errMissingOrderID = errors.New("callback carries no merchantTransactionId")

type WebhookHandler struct {
	*transport.BaseHandler
	reconciler Reconciler
	salt       checksum.Salt
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler Reconciler, salt checksum.Salt) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		reconciler:  reconciler,
		salt:        salt,
	}
}

// HandleWebhook handles POST /payments/gateway/webhook. The signature is checked
// over the raw body before anything is parsed. Every verified callback is
// acknowledged with {}, including ones this service cannot act on, since
// redelivering them changes nothing. Only server-side failures such as a failed
// settlement write answer 5xx so the provider redelivers.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !checksum.Verify(r.Header.Get(pgtypes.HeaderVerify), body, h.salt) {
		log.Warn("webhook rejected: signature mismatch", "remote_addr", r.RemoteAddr)
		h.WriteAppError(w, internal.ErrSignatureInvalid)
		return
	}

	tx, code, err := decodeCallback(body)
	if err != nil {
		log.Warn("webhook acknowledged: malformed payload", "error", err)
		h.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}

	orderID := tx.MerchantTransactionID
	log = log.With("order_id", orderID, "code", code)

	outcome, terminal := OutcomeFor(pgtypes.StateFromCode(code))
	if !terminal {
		log.Info("webhook acknowledged without settlement")
		h.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}

	res, err := h.reconciler.Reconcile(r.Context(), orderID, outcome)
	if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode < http.StatusInternalServerError {
		log.Warn("webhook acknowledged: callback not settleable", "code", appErr.Code, "error", err)
		h.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		log.Error("webhook settlement failed", "error", err)
		h.WriteAppError(w, err)
		return
	}

	log.Info("webhook processed",
		"status", res.Status,
		"amount", paymentgateway.FromMinorUnits(tx.Amount).StringFixed(2))
	h.WriteJSON(w, http.StatusOK, struct{}{})
}

func decodeCallback(body []byte) (*pgtypes.TransactionData, string, error) {
	var env pgtypes.CallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", err
	}
	decoded, err := base64.StdEncoding.DecodeString(env.Response)
	if err != nil {
		return nil, "", err
	}

	var resp pgtypes.Response
	if err := json.Unmarshal(decoded, &resp); err != nil {
		return nil, "", err
	}
	var tx pgtypes.TransactionData
	if err := json.Unmarshal(resp.Data, &tx); err != nil {
		return nil, "", err
	}
	if tx.MerchantTransactionID == "" {
		return nil, "", errMissingOrderID
	}
	return &tx, resp.Code, nil
}
