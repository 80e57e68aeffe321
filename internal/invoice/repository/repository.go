// Package repository provides persistence for invoices, their line items, and payments.
package repository

import (
	"context"
	"errors"

	"invoicing-platform/backend/internal/invoice/domain"
)

// Sentinel errors returned by DeleteWithRestock. The handler maps them to
// caller-facing error kinds.
var (
	// ErrNotFound means the invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
	// ErrNotOwner means the invoice belongs to a different user.
	ErrNotOwner = errors.New("invoice not owned by caller")
	// ErrHasPayments means the invoice has recorded payments and cannot be deleted.
	ErrHasPayments = errors.New("invoice has payments")
)

// Repository is the persistence interface for invoices.
type Repository interface {
	// GetByID returns the invoice with items and payments, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	// Create persists a new invoice with its line items and payments.
	Create(ctx context.Context, inv *domain.Invoice) error
	// DeleteWithRestock deletes the invoice in one transaction: the invoice
	// must exist (ErrNotFound), belong to ownerID (ErrNotOwner), and have no
	// payments (ErrHasPayments). Each line item's quantity is returned to the
	// product's stock before the invoice rows are removed. On any sentinel
	// error nothing is modified.
	DeleteWithRestock(ctx context.Context, invoiceID, ownerID string) error
	// ListReceivables returns the owner's invoices with a positive balance due.
	ListReceivables(ctx context.Context, ownerID string) ([]*domain.Invoice, error)
}
