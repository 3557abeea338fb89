package member

import (
	"context"
	"fmt"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/auth"
	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetPermissions(ctx context.Context, userID int64) ([]string, error)
	ListIDsWithPermission(ctx context.Context, permission string) ([]int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Lookup returns contact details for an active member.
func (s *Service) Lookup(ctx context.Context, id int64) (*Member, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member by id: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, internal.ErrMemberNotFound
	}
	return FromDataModel(u), nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*Member, error) {
	m, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	perms, err := s.repo.GetPermissions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member permissions: %w", err)
	}
	m.Permissions = perms
	return m, nil
}

// AdminIDs lists active users holding the admin permission.
func (s *Service) AdminIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListIDsWithPermission(ctx, auth.PermissionAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return ids, nil
}
