package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI doubles as the refresh session key; a random one is used when empty.
	JTI string
}

// AccessTokenClaims is the typed body of a sealcard access token.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks (jwt.ClaimsValidator).
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return errors.New("subject does not match user_id")
	}
	if !c.Role.IsValid() {
		return errors.New("unknown role claim")
	}
	if c.ID == "" {
		return errors.New("missing jti")
	}
	return nil
}
