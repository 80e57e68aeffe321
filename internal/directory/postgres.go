package directory

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"invoicing-platform/backend/internal/security"
	"invoicing-platform/backend/internal/user/domain"
)

// PostgresDirectory implements Directory against the users and credentials
// tables. New accounts get a random temporary password (bcrypt-hashed); the
// invited member resets it on first login through the auth service.
type PostgresDirectory struct {
	db     *sql.DB
	hasher *security.Hasher
}

// NewPostgresDirectory returns a directory that stores accounts in the given db.
func NewPostgresDirectory(db *sql.DB, hasher *security.Hasher) *PostgresDirectory {
	return &PostgresDirectory{db: db, hasher: hasher}
}

// CreateUser writes the profile row and its credential in one transaction.
// The credentials table's foreign key requires the users row to exist first,
// so the profile insert precedes the credential insert.
func (d *PostgresDirectory) CreateUser(ctx context.Context, u *domain.User) (string, error) {
	temp, err := randomPassword()
	if err != nil {
		return "", err
	}
	hash, err := d.hasher.Hash([]byte(temp))
	if err != nil {
		return "", err
	}

	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	handle := sql.NullString{String: u.MessagingHandle, Valid: u.MessagingHandle != ""}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, status, messaging_handle, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, u.Email, u.Name, string(u.Role), string(u.Status), handle, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return "", ErrEmailExists
	}
	if err != nil {
		return "", fmt.Errorf("directory: create profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, created_at) VALUES ($1, $2, $3)`,
		id, hash, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("directory: create credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505), the authority on duplicate emails.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// randomPassword returns a 24-character URL-safe random string.
func randomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
