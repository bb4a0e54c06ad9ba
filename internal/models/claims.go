package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims are the JWT claims attached to authenticated requests.
// Token minting itself is handled by the external auth service; this
// pipeline only consumes the claims.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint     `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// IsReviewer reports whether the actor may verify or reject documents.
func (c *UserClaims) IsReviewer() bool {
	return c.Role == RoleAdmin || c.Role == RoleDirector
}

// IsDirector reports whether the actor may perform director-level
// transitions such as post-meeting activation.
func (c *UserClaims) IsDirector() bool {
	return c.Role == RoleDirector
}
