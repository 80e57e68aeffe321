// Package handler exposes the team invitation callable endpoint.
package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicing-platform/backend/internal/audit"
	"invoicing-platform/backend/internal/directory"
	"invoicing-platform/backend/internal/policy/engine"
	"invoicing-platform/backend/internal/server/httpx"
	"invoicing-platform/backend/internal/server/middleware"
	userdomain "invoicing-platform/backend/internal/user/domain"
	userrepo "invoicing-platform/backend/internal/user/repository"
)

// Handler serves team invitations: an active admin creates a directory
// account for the invitee and a pending profile record.
type Handler struct {
	userRepo    userrepo.Repository
	directory   directory.Directory
	policy      engine.Evaluator
	auditLogger audit.AuditLogger
}

// NewHandler returns a team handler.
func NewHandler(userRepo userrepo.Repository, dir directory.Directory, policy engine.Evaluator, auditLogger audit.AuditLogger) *Handler {
	return &Handler{userRepo: userRepo, directory: dir, policy: policy, auditLogger: auditLogger}
}

type inviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type inviteResponse struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// Invite handles POST /v1/team/invite.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok || callerID == "" {
		httpx.WriteError(w, status.Error(codes.Unauthenticated, "authentication required"))
		return
	}
	caller, err := h.userRepo.GetByID(r.Context(), callerID)
	if err != nil {
		httpx.WriteError(w, status.Error(codes.Internal, "failed to load caller"))
		return
	}
	access, err := h.policy.EvaluateTeamAccess(r.Context(), caller)
	if err != nil {
		httpx.WriteError(w, status.Error(codes.Internal, "failed to evaluate team policy"))
		return
	}
	if !access.CanManageTeam {
		httpx.WriteError(w, status.Error(codes.PermissionDenied, "only an active admin can invite team members"))
		return
	}

	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		httpx.WriteError(w, status.Error(codes.InvalidArgument, "a valid email is required"))
		return
	}
	role := userdomain.Role(req.Role)
	if role == "" {
		role = userdomain.RoleMember
	}
	if role != userdomain.RoleAdmin && role != userdomain.RoleMember {
		httpx.WriteError(w, status.Error(codes.InvalidArgument, "role must be admin or member"))
		return
	}

	now := time.Now().UTC()
	invited := &userdomain.User{
		Email:     email,
		Name:      strings.TrimSpace(req.Name),
		Role:      role,
		Status:    userdomain.UserStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newID, err := h.directory.CreateUser(r.Context(), invited)
	if errors.Is(err, directory.ErrEmailExists) {
		httpx.WriteError(w, status.Error(codes.AlreadyExists, "a user with this email already exists"))
		return
	}
	if err != nil {
		httpx.WriteError(w, status.Error(codes.Internal, "failed to create account"))
		return
	}

	if h.auditLogger != nil {
		h.auditLogger.LogEvent(r.Context(), callerID, "invite", "team", newID)
	}
	httpx.WriteResult(w, inviteResponse{UserID: newID, Status: string(userdomain.UserStatusPending)})
}
