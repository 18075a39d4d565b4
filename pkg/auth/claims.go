package auth

import (
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	Birthday string
	JTI      string
}

// AccessTokenClaims is the typed JWT issued to clients. Birthday rides along
// so fortune endpoints can skip a user lookup.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Role     enums.UserRole `json:"role"`
	Birthday string         `json:"birthday,omitempty"`
	jwt.RegisteredClaims
}
