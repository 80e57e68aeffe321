package repository

import (
	"context"

	"invoicing-platform/backend/internal/user/domain"
)

// Repository defines persistence for user profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpsertMessagingHandle sets the linked messaging handle for the user.
	// Per-key atomic; writing the same handle twice is a no-op.
	UpsertMessagingHandle(ctx context.Context, userID, handle string) error
}
