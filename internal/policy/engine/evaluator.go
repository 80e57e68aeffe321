package engine

import (
	"context"

	userdomain "invoicing-platform/backend/internal/user/domain"
)

// TeamAccessResult holds the result of team-access policy evaluation.
type TeamAccessResult struct {
	CanManageTeam bool
}

// Evaluator evaluates team-access policies using OPA or other engines.
type Evaluator interface {
	// EvaluateTeamAccess decides whether the given user may manage the team
	// (invite members). user may be nil; a nil user is never allowed.
	EvaluateTeamAccess(ctx context.Context, user *userdomain.User) (TeamAccessResult, error)
}
