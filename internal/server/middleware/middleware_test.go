package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	auditrepo "invoicing-platform/backend/internal/audit/repository"
	"invoicing-platform/backend/internal/security"
	teldomain "invoicing-platform/backend/internal/telemetry/domain"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingToken(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	handler := Auth(tokens, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/delete", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	var body struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Error.Status != "UNAUTHENTICATED" {
		t.Errorf("error status = %q, want %q", body.Error.Status, "UNAUTHENTICATED")
	}
}

func TestAuth_ValidToken(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, _, err := tokens.IssueAccess("user-1", "admin")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	var gotID, gotRole string
	handler := Auth(tokens, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserID(r.Context())
		gotRole, _ = GetUserRole(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/delete", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if gotID != "user-1" {
		t.Errorf("user ID = %q, want %q", gotID, "user-1")
	}
	if gotRole != "admin" {
		t.Errorf("role = %q, want %q", gotRole, "admin")
	}
}

func TestAuth_PublicPath(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	handler := Auth(tokens, map[string]bool{"/healthz": true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	handler := Auth(tokens, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/delete", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"x-forwarded-for single", "10.0.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-forwarded-for list", "10.0.0.1, 10.0.0.2", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-real-ip", "", "10.0.0.3", "192.168.1.1:1234", "10.0.0.3"},
		{"remote addr", "", "", "192.168.1.1:1234", "192.168.1.1"},
		{"remote addr no port", "", "", "192.168.1.1", "192.168.1.1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = c.remoteAddr
			if c.forwarded != "" {
				req.Header.Set("X-Forwarded-For", c.forwarded)
			}
			if c.realIP != "" {
				req.Header.Set("X-Real-IP", c.realIP)
			}
			if got := ClientIP(req); got != c.want {
				t.Errorf("ClientIP = %q, want %q", got, c.want)
			}
		})
	}
}

func TestRealIP_StoresIPInContext(t *testing.T) {
	var got string
	handler := RealIP()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "10.0.0.7" {
		t.Errorf("client IP = %q, want %q", got, "10.0.0.7")
	}
}

func TestAudit_WritesEntryForAuthenticatedRequest(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	handler := Audit(repo, map[string]bool{"/healthz": true})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/delete", nil)
	ctx := WithIdentity(req.Context(), "user-1", "admin")
	ctx = WithClientIP(ctx, "10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	logs := repo.All()
	if len(logs) != 1 {
		t.Fatalf("logs count = %d, want 1", len(logs))
	}
	if logs[0].Action != "delete" || logs[0].Resource != "invoice" {
		t.Errorf("action/resource = %s/%s, want delete/invoice", logs[0].Action, logs[0].Resource)
	}
	if logs[0].UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", logs[0].UserID, "user-1")
	}
	if logs[0].IP != "10.0.0.1" {
		t.Errorf("IP = %q, want %q", logs[0].IP, "10.0.0.1")
	}
}

func TestAudit_SkipsUnauthenticated(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	handler := Audit(repo, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/delete", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := len(repo.All()); got != 0 {
		t.Errorf("logs count = %d, want 0", got)
	}
}

func TestAudit_SkipsConfiguredPaths(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	handler := Audit(repo, map[string]bool{"/healthz": true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	ctx := WithIdentity(req.Context(), "user-1", "admin")
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	if got := len(repo.All()); got != 0 {
		t.Errorf("logs count = %d, want 0", got)
	}
}

type captureProducer struct {
	events chan *teldomain.Event
}

func (p *captureProducer) Emit(ctx context.Context, event *teldomain.Event) error {
	p.events <- event
	return nil
}

func (p *captureProducer) Close() error { return nil }

func TestTelemetry_EmitsRequestEvent(t *testing.T) {
	p := &captureProducer{events: make(chan *teldomain.Event, 1)}
	handler := Telemetry(p, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/team/invite", nil)
	ctx := WithIdentity(req.Context(), "user-1", "admin")
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	var event *teldomain.Event
	select {
	case event = <-p.events:
	case <-time.After(2 * time.Second):
		t.Fatal("no telemetry event emitted")
	}
	if event.EventType != "http_request" {
		t.Errorf("EventType = %q, want %q", event.EventType, "http_request")
	}
	if event.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", event.UserID, "user-1")
	}
	var meta httpRequestMetadata
	if err := json.Unmarshal(event.Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta.Path != "/v1/team/invite" {
		t.Errorf("metadata path = %q, want %q", meta.Path, "/v1/team/invite")
	}
	if meta.Status != http.StatusConflict {
		t.Errorf("metadata status = %d, want %d", meta.Status, http.StatusConflict)
	}
}

func TestTelemetry_NilProducer(t *testing.T) {
	handler := Telemetry(nil, nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/receivables", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRecover_ConvertsPanicToInternal(t *testing.T) {
	handler := Recover()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/pairing/start", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	var body struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Error.Status != "INTERNAL" {
		t.Errorf("error status = %q, want %q", body.Error.Status, "INTERNAL")
	}
}
