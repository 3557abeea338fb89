package auth

import (
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/frahmantamala/gym-membership/internal/auth"
	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
)

var errUserNotFound = errors.New("user not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// GetPasswordForUsername returns the hash and id of an active user by email.
func (r *Repository) GetPasswordForUsername(email string) (string, string, error) {
	var u userDatamodel.User
	err := r.db.Select("id", "password_hash").
		Where("email = ? AND is_active = ?", email, true).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", errUserNotFound
	}
	if err != nil {
		return "", "", err
	}
	return u.PasswordHash, strconv.FormatInt(u.ID, 10), nil
}

func (r *Repository) GetUserWithPermissions(userID int64) (*auth.User, error) {
	var u userDatamodel.User
	err := r.db.Select("id", "email").
		Where("id = ? AND is_active = ?", userID, true).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var permissions []string
	err = r.db.Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.name").
		Pluck("permissions.name", &permissions).Error
	if err != nil {
		return nil, err
	}

	return &auth.User{ID: u.ID, Email: u.Email, Permissions: permissions}, nil
}
