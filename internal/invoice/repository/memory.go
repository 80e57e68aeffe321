package repository

import (
	"context"
	"sort"
	"sync"

	"invoicing-platform/backend/internal/invoice/domain"
)

// MemoryRepository is an in-memory Repository for tests and local development.
// It also tracks product stock so DeleteWithRestock behaves like the Postgres
// implementation.
type MemoryRepository struct {
	mu       sync.Mutex
	invoices map[string]*domain.Invoice
	stock    map[string]int64
}

// NewMemoryRepository returns an empty in-memory invoice repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		invoices: make(map[string]*domain.Invoice),
		stock:    make(map[string]int64),
	}
}

// SetStock sets the tracked stock for a product.
func (r *MemoryRepository) SetStock(productID string, stock int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock[productID] = stock
}

// StockOf returns the tracked stock for a product.
func (r *MemoryRepository) StockOf(productID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stock[productID]
}

// GetByID returns a copy of the invoice, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return copyInvoice(inv), nil
}

// Create stores a copy of the invoice.
func (r *MemoryRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

// DeleteWithRestock mirrors the Postgres implementation's sentinel contract.
func (r *MemoryRepository) DeleteWithRestock(ctx context.Context, invoiceID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	if inv.UserID != ownerID {
		return ErrNotOwner
	}
	if len(inv.Payments) > 0 {
		return ErrHasPayments
	}
	for _, item := range inv.Items {
		if _, ok := r.stock[item.ProductID]; ok {
			r.stock[item.ProductID] += item.Quantity
		}
	}
	delete(r.invoices, invoiceID)
	return nil
}

// ListReceivables returns copies of the owner's invoices with a positive balance due, newest first.
func (r *MemoryRepository) ListReceivables(ctx context.Context, ownerID string) ([]*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Invoice
	for _, inv := range r.invoices {
		if inv.UserID == ownerID && inv.BalanceDue > 0 {
			out = append(out, copyInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyInvoice(inv *domain.Invoice) *domain.Invoice {
	c := *inv
	c.Items = append([]domain.LineItem(nil), inv.Items...)
	c.Payments = append([]domain.Payment(nil), inv.Payments...)
	return &c
}
