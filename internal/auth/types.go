package auth

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold. A user's role is fixed
// at creation and never changes.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole normalizes raw input into a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// User represents a registered account bound to exactly one organization.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	OrganizationID string    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Identity is the verified caller identity carried through a request.
type Identity struct {
	UserID         string
	Email          string
	Role           Role
	OrganizationID string
}

// UserSummary is the minimal user projection returned beside a session token.
type UserSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organizationId"`
}

// Session is the result of a successful registration or login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      UserSummary
}

// Profile joins a user with its organization name for the /me endpoint.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	OrgID   string `json:"orgId"`
	OrgName string `json:"orgName"`
}
