package auth

import (
	"strings"

	"github.com/frahmantamala/gym-membership/internal"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate trims the email and reports the first missing field.
func (d *LoginDTO) Validate() error {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	if d.Email == "" {
		return internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)
	}
	if d.Password == "" {
		return internal.NewValidationFieldError("password", "password is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	if strings.TrimSpace(d.RefreshToken) == "" {
		return internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
