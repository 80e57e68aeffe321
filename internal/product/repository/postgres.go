package repository

import (
	"context"
	"database/sql"
	"errors"

	"invoicing-platform/backend/internal/product/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a product repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the product for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, stock, unit_price, created_at FROM products WHERE id = $1`, id)
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.UnitPrice, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create persists the product to the database. The product must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, stock, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Stock, p.UnitPrice, p.CreatedAt)
	return err
}
