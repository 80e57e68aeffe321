package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"invoicing-platform/backend/internal/telemetry"
	"invoicing-platform/backend/internal/telemetry/domain"
	"invoicing-platform/backend/internal/telemetry/producer"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry returns middleware that emits a telemetry event after each request.
// Best-effort: failures are logged and do not fail the request. If p is nil,
// the middleware no-ops. skipPaths is the set of paths to not emit (e.g. /healthz).
func Telemetry(p producer.Producer, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil || skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			ww := wrapWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			meta := httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     ww.Status(),
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   GetClientIP(r.Context()),
			}
			metaJSON, _ := json.Marshal(meta)
			userID, _ := GetUserID(r.Context())
			event := &domain.Event{
				UserID:    userID,
				EventType: "http_request",
				Source:    "http_middleware",
				Metadata:  metaJSON,
				CreatedAt: time.Now().UTC(),
			}
			telemetry.EmitAsync(producerEmitter{p}, r.Context(), event)
		})
	}
}

// producerEmitter adapts a producer.Producer to the telemetry.EventEmitter interface.
type producerEmitter struct {
	p producer.Producer
}

func (e producerEmitter) Emit(ctx context.Context, event *domain.Event) error {
	return e.p.Emit(ctx, event)
}
