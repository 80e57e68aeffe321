// Package domain holds the invoice model.
package domain

import "time"

// Invoice is a billable document owned by the user who created it.
// Amounts are integer minor units.
type Invoice struct {
	ID           string
	UserID       string
	CustomerName string
	Total        int64
	BalanceDue   int64
	Status       string
	Items        []LineItem
	Payments     []Payment
	CreatedAt    time.Time
}

// LineItem is one product line on an invoice. Quantity is returned to the
// product's stock when the invoice is deleted.
type LineItem struct {
	ID          string
	ProductID   string
	Description string
	Quantity    int64
	UnitPrice   int64
}

// Payment is a recorded payment against an invoice. An invoice with any
// payment cannot be deleted.
type Payment struct {
	ID     string
	Amount int64
	PaidAt time.Time
}
