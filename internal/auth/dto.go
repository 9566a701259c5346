package auth

import (
	"github.com/angelmondragon/rvstore-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoints.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user"`
}

// RegisterRequest is the self-service signup payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=4,max=64"`
	Password string `json:"password" validate:"required,min=4,max=255"`
	FullName string `json:"fullName" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
}
