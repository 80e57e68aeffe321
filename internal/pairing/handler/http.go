// Package handler exposes the pairing callable endpoint.
package handler

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicing-platform/backend/internal/pairing"
	"invoicing-platform/backend/internal/server/httpx"
	"invoicing-platform/backend/internal/server/middleware"
)

// Handler serves pairing session starts.
type Handler struct {
	service *pairing.Service
}

// NewHandler returns a pairing handler.
func NewHandler(service *pairing.Service) *Handler {
	return &Handler{service: service}
}

type startResponse struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
}

// Start handles POST /v1/pairing/start. The call blocks until the session's
// first caller-facing terminal event: a scan-code payload, the already-linked
// marker, or an error.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, status.Error(codes.Unauthenticated, "authentication required"))
		return
	}

	result, err := h.service.StartPairing(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteResult(w, startResponse{Status: result.Status, Code: result.Code})
}
