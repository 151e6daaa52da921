// internal/policy/policy.go
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
	"go.uber.org/zap"

	"saleorauth/pkg/auth"
)

// Engine decides whether a granted-permission set satisfies a required set.
// With no rego module configured, the decision is the plain superset check.
// A configured module receives {"granted": [...], "required": [...]} as
// input and must expose a boolean at data.authz.allow.
type Engine struct {
	module string
	log    *zap.SugaredLogger
}

// New loads the rego module at path, or returns a default engine when path
// is empty.
func New(path string, log *zap.SugaredLogger) (*Engine, error) {
	e := &Engine{log: log.Named("policy")}
	if path == "" {
		return e, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission policy module: %w", err)
	}
	e.module = string(raw)
	return e, nil
}

// Allow evaluates the permission decision. Evaluation failures of a
// configured module deny (and are logged); a broken policy must not widen
// access.
func (e *Engine) Allow(ctx context.Context, granted, required []string) bool {
	if e.module == "" {
		return auth.HasAll(granted, required)
	}
	r := rego.New(
		rego.Query("data.authz.allow"),
		rego.Module("authz.rego", e.module),
		rego.Input(map[string]any{"granted": granted, "required": required}),
	)
	rs, err := r.Eval(ctx)
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		e.log.Errorw("permission policy evaluation failed, denying", "err", err)
		return false
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed
}
