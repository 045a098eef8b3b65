package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Role    enums.ProfileRole
	IsAdmin bool
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID         `json:"user_id"`
	Role    enums.ProfileRole `json:"role"`
	IsAdmin bool              `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}
