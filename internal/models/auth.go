package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole mirrors vai_tro on the timetable service.
type UserRole int

const (
	RoleAdmin   UserRole = 0
	RoleTeacher UserRole = 1
	RoleParent  UserRole = 2
	RoleStudent UserRole = 3
)

// String returns the role name.
func (r UserRole) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleTeacher:
		return "teacher"
	case RoleParent:
		return "parent"
	case RoleStudent:
		return "student"
	default:
		return "unknown"
	}
}

// TokenClaims is the payload read from a JWT bearer credential. The signature
// is never verified client side.
type TokenClaims struct {
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
	Role  *UserRole `json:"vai_tro,omitempty"`
	jwt.RegisteredClaims
}

// SessionInfo summarises the credential for the UI shell. The token itself is never echoed.
type SessionInfo struct {
	HasCredential bool       `json:"has_credential"`
	Opaque        bool       `json:"opaque"`
	Subject       string     `json:"subject,omitempty"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	Role          string     `json:"role,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
}
