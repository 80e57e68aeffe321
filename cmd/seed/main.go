// seed inserts development sample data for local testing. Run with go run ./cmd/seed.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"invoicing-platform/backend/internal/config"
	"invoicing-platform/backend/internal/db"
	"invoicing-platform/backend/internal/directory"
	invoicedomain "invoicing-platform/backend/internal/invoice/domain"
	invoicerepo "invoicing-platform/backend/internal/invoice/repository"
	productdomain "invoicing-platform/backend/internal/product/domain"
	productrepo "invoicing-platform/backend/internal/product/repository"
	"invoicing-platform/backend/internal/security"
	userdomain "invoicing-platform/backend/internal/user/domain"
	userrepo "invoicing-platform/backend/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devUserID    = "dev-user-001"
	devUser2ID   = "dev-user-002"
	memberEmail  = "member@example.com"

	devProductID  = "dev-product-001"
	devInvoice1ID = "dev-invoice-001"
	devInvoice2ID = "dev-invoice-002"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	dir := directory.NewPostgresDirectory(conn, security.NewHasher(cfg.BcryptCost))
	now := time.Now().UTC()

	if _, err := dir.CreateUser(ctx, &userdomain.User{
		ID: devUserID, Email: devUserEmail, Name: "Dev Admin",
		Role: userdomain.RoleAdmin, Status: userdomain.UserStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		log.Fatalf("create dev user: %v", err)
	}
	if _, err := dir.CreateUser(ctx, &userdomain.User{
		ID: devUser2ID, Email: memberEmail, Name: "Member User",
		Role: userdomain.RoleMember, Status: userdomain.UserStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		log.Fatalf("create member user: %v", err)
	}

	products := productrepo.NewPostgresRepository(conn)
	if err := products.Create(ctx, &productdomain.Product{
		ID: devProductID, Name: "Standing Desk", Stock: 10, UnitPrice: 45000, CreatedAt: now,
	}); err != nil {
		log.Fatalf("create product: %v", err)
	}

	invoices := invoicerepo.NewPostgresRepository(conn)

	// Invoice with a recorded payment: deletion must be refused, receivables
	// should report the remaining balance.
	if err := invoices.Create(ctx, &invoicedomain.Invoice{
		ID: devInvoice1ID, UserID: devUserID, CustomerName: "Globex Corp",
		Total: 90000, BalanceDue: 50000, Status: "open", CreatedAt: now,
		Items: []invoicedomain.LineItem{{
			ID: devInvoice1ID + "-item-1", ProductID: devProductID,
			Description: "Standing Desk", Quantity: 2, UnitPrice: 45000,
		}},
		Payments: []invoicedomain.Payment{{
			ID: devInvoice1ID + "-payment-1", Amount: 40000, PaidAt: now,
		}},
	}); err != nil {
		log.Fatalf("create paid invoice: %v", err)
	}

	// Invoice with no payments: deletable, stock restocks on delete.
	if err := invoices.Create(ctx, &invoicedomain.Invoice{
		ID: devInvoice2ID, UserID: devUserID, CustomerName: "Initech",
		Total: 135000, BalanceDue: 135000, Status: "open", CreatedAt: now,
		Items: []invoicedomain.LineItem{{
			ID: devInvoice2ID + "-item-1", ProductID: devProductID,
			Description: "Standing Desk", Quantity: 3, UnitPrice: 45000,
		}},
	}); err != nil {
		log.Fatalf("create open invoice: %v", err)
	}

	if p, err := products.GetByID(ctx, devProductID); err == nil && p != nil {
		log.Printf("Seeded %q with stock %d", p.Name, p.Stock)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev admin: %s (temporary password in credentials table)\n", devUserEmail)
	fmt.Printf("Member: %s\n", memberEmail)
}
