package auth

import (
	"context"

	"github.com/frahmantamala/gym-membership/internal"
)

const (
	PermissionAdmin          = "admin"
	PermissionManagePayments = "manage_payments"
	PermissionMember         = "member"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// User is the authenticated principal placed on the request context.
type User struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions,omitempty"`
}

// Can reports whether the user holds permission directly or through a
// permission that implies it.
func (u *User) Can(permission string) bool {
	for _, held := range u.Permissions {
		if held == permission {
			return true
		}
		for _, implied := range impliedBy[held] {
			if implied == permission {
				return true
			}
		}
	}
	return false
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

var (
	ErrInvalidCredentials = internal.NewUnauthorizedError("Invalid email or password", internal.ErrCodeInvalidCredentials)
	ErrInvalidToken       = internal.NewUnauthorizedError("Invalid token", internal.ErrCodeInvalidToken)
	ErrTokenExpired       = internal.NewUnauthorizedError("Token expired", internal.ErrCodeTokenExpired)
	ErrUserInactive       = internal.NewUnauthorizedError("User is inactive", internal.ErrCodeUserInactive)
)
