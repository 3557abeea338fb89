package paymentgateway

import (
	"encoding/json"
	"errors"
)

// Endpoint paths. They are part of the signed string, so they must match the provider byte for byte.
const (
	PathPay    = "/pg/v1/pay"
	PathStatus = "/pg/v1/status"
	PathRefund = "/pg/v1/refund"

	HeaderVerify     = "X-VERIFY"
	HeaderMerchantID = "X-MERCHANT-ID"
)

// Response codes reported by the provider.
const (
	CodePaymentInitiated = "PAYMENT_INITIATED"
	CodePaymentSuccess   = "PAYMENT_SUCCESS"
	CodePaymentPending   = "PAYMENT_PENDING"
	CodePaymentError     = "PAYMENT_ERROR"
	CodePaymentDeclined  = "PAYMENT_DECLINED"
	CodeTimedOut         = "TIMED_OUT"
	CodeBadRequest       = "BAD_REQUEST"
	CodeAuthorizedFailed = "AUTHORIZATION_FAILED"
	CodeInternalError    = "INTERNAL_SERVER_ERROR"
	CodeTxnNotFound      = "TRANSACTION_NOT_FOUND"
)

type State string

const (
	StatePending   State = "PENDING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateUnknown   State = "UNKNOWN"
)

// StateFromCode folds a provider response code into a settlement-relevant state.
func StateFromCode(code string) State {
	switch code {
	case CodePaymentSuccess:
		return StateCompleted
	case CodePaymentError, CodePaymentDeclined, CodeTimedOut:
		return StateFailed
	case CodePaymentPending, CodePaymentInitiated:
		return StatePending
	default:
		return StateUnknown
	}
}

// SignedRequest is the envelope for every POST: base64 JSON under "request".
type SignedRequest struct {
	Request string `json:"request"`
}

// CallbackEnvelope is the webhook body: base64 JSON under "response".
type CallbackEnvelope struct {
	Response string `json:"response"`
}

type PaymentInstrument struct {
	Type string `json:"type"`
}

type PayRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     PaymentInstrument `json:"paymentInstrument"`
}

func (r *PayRequest) Validate() error {
	if r.MerchantID == "" {
		return errors.New("merchantId is required")
	}
	if r.MerchantTransactionID == "" {
		return errors.New("merchantTransactionId is required")
	}
	if len(r.MerchantTransactionID) > 38 {
		return errors.New("merchantTransactionId must be at most 38 characters")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.RedirectURL == "" || r.CallbackURL == "" {
		return errors.New("redirectUrl and callbackUrl are required")
	}
	return nil
}

type RefundRequest struct {
	MerchantID            string `json:"merchantId"`
	MerchantUserID        string `json:"merchantUserId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	Amount                int64  `json:"amount"`
	CallbackURL           string `json:"callbackUrl"`
}

// Response is the common provider reply shape.
type Response struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type RedirectInfo struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

type InstrumentResponse struct {
	Type         string       `json:"type"`
	RedirectInfo RedirectInfo `json:"redirectInfo"`
}

type PayResponseData struct {
	MerchantID            string             `json:"merchantId"`
	MerchantTransactionID string             `json:"merchantTransactionId"`
	InstrumentResponse    InstrumentResponse `json:"instrumentResponse"`
}

// TransactionData is carried by status replies and webhook callbacks.
type TransactionData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
}
