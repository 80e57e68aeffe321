// Package handler exposes the invoice callable endpoints.
package handler

import (
	"errors"
	"net/http"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicing-platform/backend/internal/audit"
	"invoicing-platform/backend/internal/invoice/domain"
	invoicerepo "invoicing-platform/backend/internal/invoice/repository"
	"invoicing-platform/backend/internal/server/httpx"
	"invoicing-platform/backend/internal/server/middleware"
)

// Handler serves invoice deletion and receivables lookup.
type Handler struct {
	repo        invoicerepo.Repository
	auditLogger audit.AuditLogger
}

// NewHandler returns an invoice handler backed by repo.
func NewHandler(repo invoicerepo.Repository, auditLogger audit.AuditLogger) *Handler {
	return &Handler{repo: repo, auditLogger: auditLogger}
}

type deleteRequest struct {
	InvoiceID string `json:"invoiceId"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// Delete handles POST /v1/invoices/delete. The invoice must exist, belong to
// the caller, and have no recorded payments; its line item quantities are
// returned to product stock in the same transaction as the delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, status.Error(codes.Unauthenticated, "authentication required"))
		return
	}
	var req deleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.InvoiceID == "" {
		httpx.WriteError(w, status.Error(codes.InvalidArgument, "invoiceId required"))
		return
	}

	err := h.repo.DeleteWithRestock(r.Context(), req.InvoiceID, userID)
	switch {
	case errors.Is(err, invoicerepo.ErrNotFound):
		httpx.WriteError(w, status.Error(codes.NotFound, "invoice not found"))
		return
	case errors.Is(err, invoicerepo.ErrNotOwner):
		httpx.WriteError(w, status.Error(codes.PermissionDenied, "invoice does not belong to you"))
		return
	case errors.Is(err, invoicerepo.ErrHasPayments):
		httpx.WriteError(w, status.Error(codes.FailedPrecondition, "invoice has payments and cannot be deleted"))
		return
	case err != nil:
		httpx.WriteError(w, status.Error(codes.Internal, "failed to delete invoice"))
		return
	}

	if h.auditLogger != nil {
		h.auditLogger.LogEvent(r.Context(), userID, "delete", "invoice", req.InvoiceID)
	}
	httpx.WriteResult(w, deleteResponse{Deleted: true})
}

type receivableEntry struct {
	InvoiceID    string    `json:"invoiceId"`
	CustomerName string    `json:"customerName"`
	Total        int64     `json:"total"`
	BalanceDue   int64     `json:"balanceDue"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type receivablesResponse struct {
	Receivables []receivableEntry `json:"receivables"`
}

// Receivables handles POST /v1/invoices/receivables: the caller's invoices
// with a positive balance due.
func (h *Handler) Receivables(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, status.Error(codes.Unauthenticated, "authentication required"))
		return
	}

	invoices, err := h.repo.ListReceivables(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, status.Error(codes.Internal, "failed to list receivables"))
		return
	}

	entries := make([]receivableEntry, len(invoices))
	for i, inv := range invoices {
		entries[i] = domainInvoiceToEntry(inv)
	}
	httpx.WriteResult(w, receivablesResponse{Receivables: entries})
}

func domainInvoiceToEntry(inv *domain.Invoice) receivableEntry {
	return receivableEntry{
		InvoiceID:    inv.ID,
		CustomerName: inv.CustomerName,
		Total:        inv.Total,
		BalanceDue:   inv.BalanceDue,
		Status:       inv.Status,
		CreatedAt:    inv.CreatedAt,
	}
}
