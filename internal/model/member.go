package model

import (
	"fmt"
	"time"
)

// Role represents a project member's permission level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

var validRoles = []Role{
	RoleAdmin,
	RoleMember,
	RoleViewer,
	RoleGuest,
}

// ValidateRole returns an error if r is not a recognized role.
func ValidateRole(r Role) error {
	for _, v := range validRoles {
		if r == v {
			return nil
		}
	}
	return fmt.Errorf("invalid role %q: must be one of %v", r, validRoles)
}

// Rank returns a sortable rank for the role, highest permission first.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleMember:
		return 1
	case RoleViewer:
		return 2
	case RoleGuest:
		return 3
	default:
		return 4
	}
}

// Member represents a member of a project.
type Member struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// RecordID implements the store record interface.
func (m Member) RecordID() string { return m.ID }
