package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/transport"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

const maxAuthBody = 4 << 10

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
	}
}

var errMissingToken = errors.New("missing bearer token")

var errBadBody = internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed)

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(&dto); err != nil {
		h.WriteAppError(w, errBadBody)
		return
	}

	tokens, err := h.Service.Authenticate(dto)
	if err != nil {
		logger.From(r.Context()).Warn("login rejected", "error", err)
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

// RefreshToken handles POST /auth/refresh
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(&dto); err != nil {
		h.WriteAppError(w, errBadBody)
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		logger.From(r.Context()).Warn("token refresh rejected", "error", err)
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /auth/logout. Tokens are stateless, so this only checks
// the caller still holds a valid one.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteAppError(w, ErrInvalidToken)
		return
	}
	if _, err := h.Service.ValidateAccessToken(token); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token to a User with permissions and puts
// it on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.From(r.Context())

		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, ErrInvalidToken.Wrap(errMissingToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			log.Warn("token validation failed", "error", err)
			h.WriteAppError(w, err)
			return
		}

		uid, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			log.Warn("token carries a malformed user id", "value", claims.UserID)
			h.WriteAppError(w, ErrInvalidToken)
			return
		}

		user, err := h.Service.GetUserWithPermissions(uid)
		if err != nil {
			log.Warn("token user no longer active", "user_id", uid, "error", err)
			h.WriteAppError(w, ErrUserInactive)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
