// Package server wires the HTTP router: middleware chain, callable routes, and
// the health endpoint.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicing-platform/backend/internal/audit"
	auditrepo "invoicing-platform/backend/internal/audit/repository"
	"invoicing-platform/backend/internal/directory"
	healthhandler "invoicing-platform/backend/internal/health/handler"
	invoicehandler "invoicing-platform/backend/internal/invoice/handler"
	invoicerepo "invoicing-platform/backend/internal/invoice/repository"
	"invoicing-platform/backend/internal/pairing"
	pairinghandler "invoicing-platform/backend/internal/pairing/handler"
	"invoicing-platform/backend/internal/policy/engine"
	"invoicing-platform/backend/internal/security"
	"invoicing-platform/backend/internal/server/middleware"
	teamhandler "invoicing-platform/backend/internal/team/handler"
	"invoicing-platform/backend/internal/telemetry/producer"
	userrepo "invoicing-platform/backend/internal/user/repository"
)

// Deps holds the dependencies for the HTTP router.
type Deps struct {
	// Tokens validates access tokens for protected routes. Required.
	Tokens *security.TokenProvider
	// UserRepo backs the team invite flow and the pairing identity store. Required.
	UserRepo userrepo.Repository
	// InvoiceRepo backs invoice deletion and receivables. Required.
	InvoiceRepo invoicerepo.Repository
	// Directory creates accounts for invited members. Required.
	Directory directory.Directory
	// Policy evaluates team-access decisions. Required.
	Policy engine.Evaluator
	// Pairing runs pairing sessions. Required.
	Pairing *pairing.Service
	// AuditRepo backs per-request audit rows. If nil, requests are not audited.
	AuditRepo auditrepo.Repository
	// AuditLogger is used by handlers for explicit audit events. May be nil.
	AuditLogger audit.AuditLogger
	// Telemetry emits a per-request event. If nil, no telemetry is emitted.
	Telemetry producer.Producer
	// HealthPinger is used by /healthz (e.g. *sql.DB). If nil, the DB check is skipped.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by /healthz (e.g. the OPA evaluator). If nil, the policy check is skipped.
	HealthPolicyChecker healthhandler.PolicyChecker
}

// publicPaths are served without a Bearer token.
var publicPaths = map[string]bool{"/healthz": true}

// skipObservedPaths are excluded from audit rows and telemetry events.
var skipObservedPaths = map[string]bool{"/healthz": true}

// NewRouter builds the full router.
//
// Route → handler mapping:
//   - POST /v1/team/invite          → internal/team/handler
//   - POST /v1/invoices/delete      → internal/invoice/handler
//   - POST /v1/invoices/receivables → internal/invoice/handler
//   - POST /v1/pairing/start        → internal/pairing/handler
//   - GET  /healthz                 → internal/health/handler
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover())
	r.Use(middleware.RealIP())
	r.Use(middleware.Auth(deps.Tokens, publicPaths))
	r.Use(middleware.Telemetry(deps.Telemetry, skipObservedPaths))
	r.Use(middleware.Audit(deps.AuditRepo, skipObservedPaths))

	team := teamhandler.NewHandler(deps.UserRepo, deps.Directory, deps.Policy, deps.AuditLogger)
	invoices := invoicehandler.NewHandler(deps.InvoiceRepo, deps.AuditLogger)
	pairingH := pairinghandler.NewHandler(deps.Pairing)
	health := healthhandler.NewHandler(deps.HealthPinger, deps.HealthPolicyChecker)

	r.Post("/v1/team/invite", team.Invite)
	r.Post("/v1/invoices/delete", invoices.Delete)
	r.Post("/v1/invoices/receivables", invoices.Receivables)
	r.Post("/v1/pairing/start", pairingH.Start)
	r.Get("/healthz", health.Check)

	return r
}
