package auth

import "context"

// impliedBy lists, per held permission, the permissions it grants on top of itself.
var impliedBy = map[string][]string{
	PermissionAdmin:          {PermissionManagePayments, PermissionMember},
	PermissionManagePayments: {PermissionMember},
}

type PermissionChecker interface {
	HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error)
}

// DefaultPermissionChecker resolves permissions from the user's own grants.
type DefaultPermissionChecker struct{}

func NewPermissionChecker() *DefaultPermissionChecker {
	return &DefaultPermissionChecker{}
}

func (DefaultPermissionChecker) HasPermission(_ context.Context, userPermissions []string, permission string) (bool, error) {
	u := User{Permissions: userPermissions}
	return u.Can(permission), nil
}
