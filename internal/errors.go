package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPlan      ErrorCode = "INVALID_PLAN"
	ErrCodeInvalidOrderID   ErrorCode = "INVALID_ORDER_ID"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"

	ErrCodePlanNotFound    ErrorCode = "PLAN_NOT_FOUND"
	ErrCodeMemberNotFound  ErrorCode = "MEMBER_NOT_FOUND"
	ErrCodePaymentNotFound ErrorCode = "PAYMENT_NOT_FOUND"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"

	ErrCodeSignatureInvalid    ErrorCode = "SIGNATURE_INVALID"
	ErrCodeProviderUnreachable ErrorCode = "PROVIDER_UNREACHABLE"
	ErrCodeProviderRejected    ErrorCode = "PROVIDER_REJECTED"
	ErrCodeAtomicWriteFailed   ErrorCode = "ATOMIC_WRITE_FAILED"
	ErrCodeGatewayDisabled     ErrorCode = "GATEWAY_DISABLED"
	ErrCodeRefundNotAllowed    ErrorCode = "REFUND_NOT_ALLOWED"
	ErrCodeRefundFailed        ErrorCode = "REFUND_FAILED"

	errCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// statusByType is the HTTP status every error of a given type is reported with.
var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeInternal:     http.StatusInternalServerError,
	ErrorTypeExternal:     http.StatusBadGateway,
}

// AppError is the single error shape handlers turn into an HTTP reply.
// Cause is logged but never serialised.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusByType[t]}
}

func (e *AppError) Error() string {
	if fields, ok := e.Details.(ValidationErrors); ok && len(fields.Errors) > 0 {
		return fields.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches by type and code, so copies made with Wrap still compare equal
// to the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code && e.Type == t.Type
}

// Wrap returns a copy carrying cause. The receiver is left untouched, which
// makes it safe to call on sentinels.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithCause sets the cause in place. Use Wrap on shared values.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

// NewValidationFieldError reports a single bad field under the generic
// VALIDATION_FAILED code; the field-level code goes into the details.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, ErrCodeValidationFailed, "Validation failed").
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, errCodeInternal, message).WithCause(cause)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message)
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeExternal, code, message)
}

var (
	ErrPlanNotFound    = NewNotFoundError("Plan not found", ErrCodePlanNotFound)
	ErrMemberNotFound  = NewNotFoundError("Member not found", ErrCodeMemberNotFound)
	ErrPaymentNotFound = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)

	ErrSignatureInvalid    = NewUnauthorizedError("Signature verification failed", ErrCodeSignatureInvalid)
	ErrProviderUnreachable = NewExternalError("Payment provider unreachable", ErrCodeProviderUnreachable)
	ErrProviderRejected    = NewExternalError("Payment provider rejected the request", ErrCodeProviderRejected)
	ErrAtomicWriteFailed   = newAppError(ErrorTypeInternal, ErrCodeAtomicWriteFailed, "Settlement write failed after order claim")
	ErrGatewayDisabled     = NewValidationError("Online payments are currently disabled", ErrCodeGatewayDisabled)
	ErrRefundNotAllowed    = NewConflictError("Payment cannot be refunded in its current state", ErrCodeRefundNotAllowed)
	ErrRefundFailed        = NewExternalError("Refund was not accepted by the provider", ErrCodeRefundFailed)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(wire{Type: e.Type, Code: e.Code, Message: e.Message, Details: e.Details})
}
