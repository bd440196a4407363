// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// UserRole is the closed set of roles a user can have. The role is advisory
// for scheduling purposes: any active user may be a participant on any
// meeting, and the organizer of a specific meeting is whichever user created
// it, regardless of role.
type UserRole string

// User roles.
const (
	RoleOrganizer   UserRole = "organizer"
	RoleParticipant UserRole = "participant"
)

// IsValid reports whether the role is one of the known values.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleOrganizer, RoleParticipant:
		return true
	}
	return false
}

// User is the user directory representation of a user. The scheduling
// service consumes users from the directory service and never stores them.
type User struct {
	UID      string   `json:"uid"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Role     UserRole `json:"role,omitempty"`
	Active   bool     `json:"active"`
}
