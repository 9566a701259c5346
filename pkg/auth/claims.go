package auth

import (
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	Role     enums.UserRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   int64          `json:"user_id"`
	Username string         `json:"username"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
