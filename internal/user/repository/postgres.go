package repository

import (
	"context"
	"database/sql"
	"errors"

	"invoicing-platform/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, name, role, status, messaging_handle, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	handle := sql.NullString{String: u.MessagingHandle, Valid: u.MessagingHandle != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, status, messaging_handle, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, string(u.Role), string(u.Status), handle, u.CreatedAt, u.UpdatedAt)
	return err
}

// UpsertMessagingHandle sets the linked messaging handle for the user.
// The update is a single statement, so it is atomic per row.
func (r *PostgresRepository) UpsertMessagingHandle(ctx context.Context, userID, handle string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET messaging_handle = $2, updated_at = now() WHERE id = $1`,
		userID, handle)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var role, status string
	var handle sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &status, &handle, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	if handle.Valid {
		u.MessagingHandle = handle.String
	}
	return &u, nil
}
