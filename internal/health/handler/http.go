// Package handler serves the health endpoint for Kubernetes, load balancers, and CI.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Pinger reports database connectivity (satisfied by *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports policy engine health (satisfied by the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

const checkTimeout = 2 * time.Second

// Handler serves GET /healthz. Nil checks are skipped, so a partially wired
// server still reports health for what it has.
type Handler struct {
	db     Pinger
	policy PolicyChecker
}

// NewHandler returns a health handler over the given checks.
func NewHandler(db Pinger, policy PolicyChecker) *Handler {
	return &Handler{db: db, policy: policy}
}

type response struct {
	Status string `json:"status"`
}

// Check reports 200 SERVING when every configured check passes, 503 NOT_SERVING otherwise.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	serving := true
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			log.Printf("health: database ping failed: %v", err)
			serving = false
		}
	}
	if serving && h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			log.Printf("health: policy check failed: %v", err)
			serving = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if serving {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response{Status: "SERVING"})
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(response{Status: "NOT_SERVING"})
}
