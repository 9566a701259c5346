package users

import (
	"strings"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	UserID       int64          `json:"userId"`
	Username     string         `json:"username"`
	FullName     string         `json:"fullName"`
	Email        string         `json:"email"`
	Role         enums.UserRole `json:"role"`
	MoneyBalance int64          `json:"moneyBalance"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         enums.UserRole
}

// UpdateProfileInput carries the self-service profile changes. Nil fields are left alone.
type UpdateProfileInput struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=4,max=64"`
	FullName *string `json:"fullName,omitempty" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		UserID:       u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		MoneyBalance: u.Balance,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser1
	}

	return &models.User{
		Username:     strings.TrimSpace(c.Username),
		FullName:     strings.TrimSpace(c.FullName),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Role:         role,
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
