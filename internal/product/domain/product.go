// Package domain holds the product model.
package domain

import "time"

// Product is a stocked item referenced by invoice line items.
// Stock is adjusted only inside the invoice deletion transaction.
type Product struct {
	ID        string
	Name      string
	Stock     int64
	UnitPrice int64
	CreatedAt time.Time
}
