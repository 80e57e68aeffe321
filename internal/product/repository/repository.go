// Package repository provides persistence for products.
package repository

import (
	"context"

	"invoicing-platform/backend/internal/product/domain"
)

// Repository is the persistence interface for products. Stock changes
// driven by invoice deletion happen inside the invoice repository's
// transaction; this interface covers seeding and reads.
type Repository interface {
	// GetByID returns the product for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// Create persists a new product.
	Create(ctx context.Context, p *domain.Product) error
}
