package member

import (
	"time"

	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
)

// Member is the contact view of a user row.
type Member struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromDataModel(u *userDatamodel.User) *Member {
	return &Member{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
