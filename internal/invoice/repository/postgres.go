package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"invoicing-platform/backend/internal/invoice/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an invoice repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const invoiceColumns = `id, user_id, customer_name, total, balance_due, status, created_at`

// GetByID returns the invoice with its line items and payments, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil || inv == nil {
		return inv, err
	}
	if inv.Items, err = r.listItems(ctx, r.db, id); err != nil {
		return nil, err
	}
	if inv.Payments, err = r.listPayments(ctx, r.db, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// Create persists the invoice with its line items and payments in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, user_id, customer_name, total, balance_due, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.UserID, inv.CustomerName, inv.Total, inv.BalanceDue, inv.Status, inv.CreatedAt)
	if err != nil {
		return err
	}
	for _, item := range inv.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_items (id, invoice_id, product_id, description, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, inv.ID, item.ProductID, item.Description, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
	}
	for _, p := range inv.Payments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_payments (id, invoice_id, amount, paid_at)
			VALUES ($1, $2, $3, $4)`,
			p.ID, inv.ID, p.Amount, p.PaidAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteWithRestock deletes the invoice in one transaction, returning line
// item quantities to product stock first. See Repository for the sentinel
// error contract. The invoice row is locked for the duration of the
// transaction so concurrent deletes cannot double-restock.
func (r *PostgresRepository) DeleteWithRestock(ctx context.Context, invoiceID, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if userID != ownerID {
		return ErrNotOwner
	}

	var paymentCount int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM invoice_payments WHERE invoice_id = $1`, invoiceID).Scan(&paymentCount)
	if err != nil {
		return err
	}
	if paymentCount > 0 {
		return ErrHasPayments
	}

	items, err := r.listItems(ctx, tx, invoiceID)
	if err != nil {
		return err
	}
	for _, item := range items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $2 WHERE id = $1`,
			item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			log.Printf("invoice: restock skipped, product %s not found (invoice %s)", item.ProductID, invoiceID)
		}
	}

	// invoice_items and invoice_payments cascade on delete.
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListReceivables returns the owner's invoices with balance_due > 0, newest first.
// Line items and payments are not loaded; the listing only needs header fields.
func (r *PostgresRepository) ListReceivables(ctx context.Context, ownerID string) ([]*domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE user_id = $1 AND balance_due > 0
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PostgresRepository) listItems(ctx context.Context, q querier, invoiceID string) ([]domain.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, description, quantity, unit_price
		FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) listPayments(ctx context.Context, q querier, invoiceID string) ([]domain.Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, amount, paid_at FROM invoice_payments WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.UserID, &inv.CustomerName, &inv.Total, &inv.BalanceDue, &inv.Status, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}
