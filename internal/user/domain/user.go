package domain

import (
	"errors"
	"time"
)

// User is the core user entity: a team member's profile record.
type User struct {
	ID     string
	Email  string
	Name   string
	Role   Role
	Status UserStatus
	// MessagingHandle is the linked messaging-account identifier (normalized
	// phone-style, e.g. "+15551234567"). Empty until a pairing session links one.
	MessagingHandle string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	// UserStatusPending marks an invited member who has not logged in yet.
	UserStatusPending  UserStatus = "pending"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
