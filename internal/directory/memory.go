package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"invoicing-platform/backend/internal/user/domain"
	userrepo "invoicing-platform/backend/internal/user/repository"
)

// MemoryDirectory is an in-memory Directory implementation for tests. It
// writes profiles through the shared memory user repository so tests can
// observe the accounts it provisions.
type MemoryDirectory struct {
	mu    sync.Mutex
	users *userrepo.MemoryRepository
}

// NewMemoryDirectory returns a directory that provisions accounts in users.
func NewMemoryDirectory(users *userrepo.MemoryRepository) *MemoryDirectory {
	return &MemoryDirectory{users: users}
}

// CreateUser stores the profile and returns a new user ID, or ErrEmailExists.
func (d *MemoryDirectory) CreateUser(ctx context.Context, u *domain.User) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	existing, err := d.users.GetByEmail(ctx, u.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailExists
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if err := d.users.Create(ctx, &cp); err != nil {
		return "", err
	}
	return cp.ID, nil
}
