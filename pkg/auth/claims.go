package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the identity facts minted into a JWT. The role is
// resolved from the users table on every request.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	Email          string
	EmailConfirmed bool
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	jwt.RegisteredClaims
}
