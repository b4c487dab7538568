// Package authz answers "may subject do action on object" with a casbin RBAC
// model. Policies come from the authz_rules table plus static lines from
// configuration. A Reloader keeps the table side current.
package authz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Authorizer is the check consumed by use cases.
type Authorizer interface {
	Allowed(ctx context.Context, subject, object, action string) (bool, error)
}

// Enforcer wraps a casbin enforcer.
type Enforcer struct {
	mu sync.RWMutex
	e  *casbin.Enforcer
}

// New builds the enforcer and loads every policy from src.
func New(src *Adapter) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz: model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, src)
	if err != nil {
		return nil, fmt.Errorf("authz: enforcer: %w", err)
	}
	e.EnableAutoSave(false)

	return &Enforcer{e: e}, nil
}

// Allowed reports whether subject (an account id or role) may perform action on object.
func (en *Enforcer) Allowed(_ context.Context, subject, object, action string) (bool, error) {
	en.mu.RLock()
	defer en.mu.RUnlock()

	return en.e.Enforce(subject, object, action)
}

// Reload re-reads every policy from the adapter.
func (en *Enforcer) Reload() error {
	en.mu.Lock()
	defer en.mu.Unlock()

	if err := en.e.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload: %w", err)
	}
	return nil
}

// ParseLine splits a CSV policy line such as "p, admin, notification, create_any".
func ParseLine(line string) []string {
	parts := strings.Split(line, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
