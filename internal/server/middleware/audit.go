package middleware

import (
	"log"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"invoicing-platform/backend/internal/audit"
	"invoicing-platform/backend/internal/audit/domain"
	auditrepo "invoicing-platform/backend/internal/audit/repository"
)

// Audit returns middleware that records an audit log entry after each request.
// skipPaths is the set of paths to not audit (e.g. /healthz). Create is
// best-effort: failures are logged and do not fail the request. Only writes
// when a user is authenticated.
func Audit(repo auditrepo.Repository, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if repo == nil || skipPaths[r.URL.Path] {
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok || userID == "" {
				return
			}
			ar := audit.ParsePath(r.URL.Path)
			entry := &domain.AuditLog{
				ID:        uuid.New().String(),
				UserID:    userID,
				Action:    ar.Action,
				Resource:  ar.Resource,
				IP:        GetClientIP(r.Context()),
				Metadata:  "",
				CreatedAt: time.Now().UTC(),
			}
			if err := repo.Create(r.Context(), entry); err != nil {
				log.Printf("audit: failed to create audit log: %v", err)
			}
		})
	}
}

// wrapWriter returns a chi WrapResponseWriter so the middleware chain can read
// the response status after the handler runs.
func wrapWriter(w http.ResponseWriter, protoMajor int) chimiddleware.WrapResponseWriter {
	return chimiddleware.NewWrapResponseWriter(w, protoMajor)
}
