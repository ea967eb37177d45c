package auth

// Package auth contains domain-level types for authentication, sessions and impersonation.
// It is pure and free of framework/adapter concerns.

import "strings"

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON.
// Valid values are defined as constants below.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Rank returns the role's position in the total order viewer < editor < admin.
// Unknown roles rank 0 and therefore satisfy no requirement.
func (r Role) Rank() int {
	switch Role(strings.ToLower(string(r))) {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether r meets the required role.
func (r Role) Satisfies(required Role) bool {
	return r.Rank() > 0 && r.Rank() >= required.Rank()
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Rank() > 0
}

// Identity represents the authenticated principal returned by the API's /auth/me endpoint.
// It is replaced wholesale on every verification.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Role        Role   `json:"role"`
	TenantID    string `json:"tenant_id"`
	TenantName  string `json:"tenant_name,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
}

// DisplayName returns "First Last" when available, otherwise the email.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name != "" {
		return name
	}
	return i.Email
}

// Summary projects the identity onto the public summary kept for impersonation.
func (i Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:        i.ID,
		Email:     i.Email,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Role:      string(i.Role),
	}
}

// IdentitySummary is the public view of an impersonated user.
// Role is free-form because it comes straight from the admin API.
type IdentitySummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

// ImpersonationRecord overlays a normal session while an admin acts as another user.
// OriginalToken is the admin's own bearer token, restored when impersonation ends.
type ImpersonationRecord struct {
	User          IdentitySummary `json:"user"`
	InitiatedBy   string          `json:"initiated_by"`
	OriginalToken string          `json:"-"`
}

// Storage keys for durable token persistence.
const (
	KeyAccessToken   = "access_token"
	KeyOriginalToken = "original_access_token"
)

// State names a phase of the session lifecycle.
type State string

const (
	StateInitializing  State = "initializing"
	StateVerifying     State = "verifying"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Snapshot is an immutable copy of session state handed to consumers.
type Snapshot struct {
	State         State
	Loading       bool
	Identity      *Identity
	Impersonating bool
	Impersonation *ImpersonationRecord
}

// IsAuthenticated reports whether an identity is loaded.
func (s Snapshot) IsAuthenticated() bool {
	return !s.Loading && s.Identity != nil
}
