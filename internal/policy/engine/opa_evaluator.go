package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	userdomain "invoicing-platform/backend/internal/user/domain"
)

const teamAccessQuery = "data.ivp.team_access.can_manage_team"

// Default Rego policy: only active admins may manage the team.
const defaultRegoPolicy = `package ivp.team_access

default can_manage_team = false

can_manage_team if {
	input.user.role == "admin"
	input.user.status == "active"
}
`

// OPAEvaluator evaluates team-access policies using OPA Rego.
type OPAEvaluator struct{}

// NewOPAEvaluator returns an OPA-based policy evaluator.
func NewOPAEvaluator() *OPAEvaluator {
	return &OPAEvaluator{}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	input := buildInput(nil)
	_, err := e.evaluate(ctx, input)
	return err
}

// EvaluateTeamAccess evaluates the team-access policy for the given user.
func (e *OPAEvaluator) EvaluateTeamAccess(ctx context.Context, user *userdomain.User) (TeamAccessResult, error) {
	allowed, err := e.evaluate(ctx, buildInput(user))
	if err != nil {
		return TeamAccessResult{}, err
	}
	return TeamAccessResult{CanManageTeam: allowed}, nil
}

func (e *OPAEvaluator) evaluate(ctx context.Context, input map[string]interface{}) (bool, error) {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return false, fmt.Errorf("compile policy: %w", err)
	}
	q := rego.New(
		rego.Query(teamAccessQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy query returned non-boolean")
	}
	return allowed, nil
}

func buildInput(user *userdomain.User) map[string]interface{} {
	userMap := map[string]interface{}{
		"id":     "",
		"role":   "",
		"status": "",
	}
	if user != nil {
		userMap["id"] = user.ID
		userMap["role"] = string(user.Role)
		userMap["status"] = string(user.Status)
	}
	return map[string]interface{}{"user": userMap}
}
