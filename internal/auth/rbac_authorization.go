package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/transport"
)

var errForbidden = internal.NewForbiddenError("Insufficient permissions", internal.ErrCodeForbidden)

type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer PermissionChecker
}

func NewRBACAuthorization(authorizer PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
	}
}

func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.Logger.Warn("authorization check without an authenticated user", "permission", permission)
				ra.WriteAppError(w, ErrInvalidToken)
				return
			}

			allowed, err := ra.authorizer.HasPermission(r.Context(), user.Permissions, permission)
			if err != nil {
				ra.WriteAppError(w, internal.NewInternalError("authorization check failed", err))
				return
			}
			if !allowed {
				ra.Logger.WarnContext(r.Context(), "access denied",
					"user_id", user.ID,
					"permission", permission,
					"user_permissions", user.Permissions)
				ra.WriteAppError(w, errForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireManagePayments() func(http.Handler) http.Handler {
	return ra.Middleware(PermissionManagePayments)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.Middleware(PermissionAdmin)
}
