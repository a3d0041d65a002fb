package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles carried by identity provider tokens.
type UserRole string

const (
	RoleStudent    UserRole = "STUDENT"
	RoleEducator   UserRole = "EDUCATOR"
	RoleAdmin      UserRole = "ADMIN"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// IsStaff reports whether the role may act on behalf of other users.
func (r UserRole) IsStaff() bool {
	switch r {
	case RoleEducator, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// JWTClaims represents the bearer token payload issued by the identity provider.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
