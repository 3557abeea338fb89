package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

// BaseHandler holds the response helpers every feature handler embeds.
type BaseHandler struct {
	Logger *slog.Logger
}

func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	if lg == nil {
		lg = slog.Default()
	}
	return &BaseHandler{Logger: lg}
}

func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("encode response", "status", status, "error", err)
	}
}

// WriteError answers with the standard error envelope for a bare status,
// for failures that happen before any domain error exists.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	var appErr *internal.AppError
	switch status {
	case http.StatusUnauthorized:
		appErr = internal.NewUnauthorizedError(message, internal.ErrCodeInvalidToken)
	case http.StatusForbidden:
		appErr = internal.NewForbiddenError(message, internal.ErrCodeForbidden)
	default:
		appErr = internal.NewValidationError(message, internal.ErrCodeValidationFailed)
		appErr.StatusCode = status
	}
	h.Logger.Debug("request rejected", "status", status, "message", message)
	h.WriteJSON(w, appErr.StatusCode, internal.Response{Error: appErr})
}

// WriteAppError maps err to its HTTP status. Anything that is not an AppError
// is reported as a generic 500 so internals never leak to the client.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error) {
	appErr, ok := internal.IsAppError(err)
	switch {
	case !ok:
		h.Logger.Error("unhandled error", "error", err)
		appErr = internal.NewInternalError("internal server error", err)
	case appErr.StatusCode >= http.StatusInternalServerError:
		h.Logger.Error("request failed", "code", appErr.Code, "error", err)
	}
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// ExtractTokenFromHeader returns the bearer token, or "" when the
// Authorization header is missing or uses another scheme.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
