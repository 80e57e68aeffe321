// Package directory is the auth/user-directory collaborator: it provisions
// accounts for invited team members. The invitation flow maps ErrEmailExists
// to the caller-facing "already exists" error.
package directory

import (
	"context"
	"errors"

	"invoicing-platform/backend/internal/user/domain"
)

// ErrEmailExists is returned by CreateUser when the email is already registered.
var ErrEmailExists = errors.New("directory: email already exists")

// Directory provisions accounts in the auth directory.
type Directory interface {
	// CreateUser registers a new account: the profile row and its login
	// credential, written atomically. The credential references the profile,
	// so the profile must exist by the time the credential is written. Mints
	// an ID when u.ID is empty and returns the new account's user ID.
	// Returns ErrEmailExists if an account with u.Email already exists.
	CreateUser(ctx context.Context, u *domain.User) (string, error)
}
