package pairing

import (
	"context"
	"encoding/json"
	"log"

	"invoicing-platform/backend/internal/audit"
)

// ProviderFactory builds a fresh provider for one owner's session. Each
// session exclusively owns the provider it is given.
type ProviderFactory func(ownerID string) Provider

// Service runs pairing sessions. Callers must not start overlapping sessions
// for the same owner; the service does not enforce this.
type Service struct {
	factory     ProviderFactory
	identity    IdentityStore
	cfg         Config
	auditLogger audit.AuditLogger
}

// NewService returns a pairing service.
func NewService(factory ProviderFactory, identity IdentityStore, cfg Config, auditLogger audit.AuditLogger) *Service {
	return &Service{factory: factory, identity: identity, cfg: cfg, auditLogger: auditLogger}
}

// StartPairing runs one session for ownerID and returns its single result.
// The call blocks until the first caller-facing terminal event; background
// persistence and teardown continue after it returns.
func (s *Service) StartPairing(ctx context.Context, ownerID string) (Result, error) {
	session := NewSession(ownerID, s.factory(ownerID), s.identity, s.cfg)
	result, err := session.Run(ctx)

	if s.auditLogger != nil {
		meta, _ := json.Marshal(map[string]string{"outcome": outcomeLabel(result, err)})
		s.auditLogger.LogEvent(ctx, ownerID, "start", "pairing", string(meta))
	}
	if err != nil {
		log.Printf("pairing: owner %s: session ended: %v", ownerID, err)
	}
	return result, err
}

func outcomeLabel(result Result, err error) string {
	if err != nil {
		return "error"
	}
	return result.Status
}
