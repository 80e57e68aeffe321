package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoicing-platform/backend/internal/directory"
	"invoicing-platform/backend/internal/policy/engine"
	"invoicing-platform/backend/internal/server/middleware"
	userdomain "invoicing-platform/backend/internal/user/domain"
	userrepo "invoicing-platform/backend/internal/user/repository"
)

func newTestHandler(t *testing.T) (*Handler, *userrepo.MemoryRepository, *directory.MemoryDirectory) {
	t.Helper()
	users := userrepo.NewMemoryRepository()
	now := time.Now().UTC()
	users.Create(context.Background(), &userdomain.User{
		ID: "admin-1", Email: "admin@example.com", Role: userdomain.RoleAdmin,
		Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	})
	users.Create(context.Background(), &userdomain.User{
		ID: "member-1", Email: "member@example.com", Role: userdomain.RoleMember,
		Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	})
	dir := directory.NewMemoryDirectory(users)
	h := NewHandler(users, dir, engine.NewOPAEvaluator(), nil)
	return h, users, dir
}

func doInvite(t *testing.T, h *Handler, callerID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/team/invite", strings.NewReader(body))
	if callerID != "" {
		role := "member"
		if callerID == "admin-1" {
			role = "admin"
		}
		req = req.WithContext(middleware.WithIdentity(req.Context(), callerID, role))
	}
	rr := httptest.NewRecorder()
	h.Invite(rr, req)
	return rr
}

func TestInvite_CreatesPendingProfile(t *testing.T) {
	h, users, _ := newTestHandler(t)

	rr := doInvite(t, h, "admin-1", `{"email":"New@Example.com","name":"New Member"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var body struct {
		Result inviteResponse `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Result.UserID == "" {
		t.Fatal("userId should be set")
	}
	if body.Result.Status != "pending" {
		t.Errorf("status = %q, want %q", body.Result.Status, "pending")
	}

	invited, err := users.GetByID(context.Background(), body.Result.UserID)
	if err != nil || invited == nil {
		t.Fatalf("invited user not found: %v", err)
	}
	if invited.Email != "new@example.com" {
		t.Errorf("email = %q, want normalized %q", invited.Email, "new@example.com")
	}
	if invited.Status != userdomain.UserStatusPending {
		t.Errorf("status = %q, want %q", invited.Status, userdomain.UserStatusPending)
	}
	if invited.Role != userdomain.RoleMember {
		t.Errorf("role = %q, want %q", invited.Role, userdomain.RoleMember)
	}
}

func TestInvite_DuplicateEmail(t *testing.T) {
	h, _, _ := newTestHandler(t)

	first := doInvite(t, h, "admin-1", `{"email":"dup@example.com"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first invite status = %d, want %d", first.Code, http.StatusOK)
	}

	second := doInvite(t, h, "admin-1", `{"email":"dup@example.com"}`)
	if second.Code != http.StatusConflict {
		t.Errorf("second invite status = %d, want %d", second.Code, http.StatusConflict)
	}
	if !strings.Contains(second.Body.String(), "ALREADY_EXISTS") {
		t.Errorf("body = %s, want ALREADY_EXISTS", second.Body.String())
	}
}

func TestInvite_MemberForbidden(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := doInvite(t, h, "member-1", `{"email":"x@example.com"}`)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestInvite_Unauthenticated(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := doInvite(t, h, "", `{"email":"x@example.com"}`)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestInvite_InvalidEmail(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := doInvite(t, h, "admin-1", `{"email":"not-an-email"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestInvite_InvalidRole(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := doInvite(t, h, "admin-1", `{"email":"x@example.com","role":"owner"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
