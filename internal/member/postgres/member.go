package postgres

import (
	"context"
	"errors"

	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
	"github.com/frahmantamala/gym-membership/internal/member"
	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) member.Repository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MemberRepository) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	var perms []string
	err := r.db.WithContext(ctx).
		Table("permissions p").
		Joins("JOIN user_permissions up ON up.permission_id = p.id").
		Where("up.user_id = ?", userID).
		Order("p.name").
		Pluck("p.name", &perms).Error
	return perms, err
}

func (r *MemberRepository) ListIDsWithPermission(ctx context.Context, permission string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("users u").
		Joins("JOIN user_permissions up ON up.user_id = u.id").
		Joins("JOIN permissions p ON p.id = up.permission_id").
		Where("p.name = ? AND u.is_active = ?", permission, true).
		Distinct().
		Order("u.id").
		Pluck("u.id", &ids).Error
	return ids, err
}
