package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the role carried by an access token.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleKepala    UserRole = "KEPALA"
	RoleBendahara UserRole = "BENDAHARA"
	RoleUstadz    UserRole = "USTADZ"
	RoleWali      UserRole = "WALI"
)

// Valid reports whether the role is known.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleKepala, RoleBendahara, RoleUstadz, RoleWali:
		return true
	default:
		return false
	}
}

// JWTClaims represents the JWT payload for access tokens. Tokens are issued
// by the identity provider and only verified by this service.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
	// StudentIDs scopes WALI tokens to their own children.
	StudentIDs []string `json:"student_ids,omitempty"`
	jwt.RegisteredClaims
}

// Actor returns the display name used in audit entries.
func (c *JWTClaims) Actor() string {
	if c == nil {
		return "system"
	}
	if c.Name != "" {
		return c.Name
	}
	return c.UserID
}
