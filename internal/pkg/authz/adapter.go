package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

// ErrReadOnly is returned by the write half of the casbin adapter contract.
var ErrReadOnly = errors.New("authz: policy source is read-only")

const selectRules = `SELECT ptype, coalesce(v0, ''), coalesce(v1, ''), coalesce(v2, ''),
coalesce(v3, ''), coalesce(v4, ''), coalesce(v5, '') FROM authz_rules ORDER BY id`

// Querier is the subset of pgxpool.Pool the adapter uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Adapter is a read-only casbin persist.Adapter. It merges rows of the
// authz_rules table with static policy lines.
type Adapter struct {
	db     Querier
	static [][]string
}

var _ persist.Adapter = (*Adapter)(nil)

// NewAdapter returns an adapter over db (may be nil) and static CSV lines.
func NewAdapter(db Querier, staticLines []string) *Adapter {
	static := lo.FilterMap(staticLines, func(line string, _ int) ([]string, bool) {
		rule := ParseLine(line)
		return rule, len(rule) > 1
	})
	return &Adapter{db: db, static: static}
}

// LoadPolicy loads every rule into m.
func (a *Adapter) LoadPolicy(m model.Model) error {
	rules := append([][]string{}, a.static...)

	if a.db != nil {
		rows, err := a.load(context.Background())
		if err != nil {
			return err
		}
		rules = append(rules, rows...)
	}

	rules = lo.UniqBy(rules, func(r []string) string { return fmt.Sprint(r) })
	for _, rule := range rules {
		if err := persist.LoadPolicyArray(rule, m); err != nil {
			return fmt.Errorf("authz: load %v: %w", rule, err)
		}
	}
	return nil
}

func (a *Adapter) load(ctx context.Context) ([][]string, error) {
	rows, err := a.db.Query(ctx, selectRules)
	if err != nil {
		return nil, fmt.Errorf("authz: query rules: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var r [7]string
		if err := rows.Scan(&r[0], &r[1], &r[2], &r[3], &r[4], &r[5], &r[6]); err != nil {
			return nil, fmt.Errorf("authz: scan rule: %w", err)
		}
		rule := r[:]
		for len(rule) > 0 && rule[len(rule)-1] == "" {
			rule = rule[:len(rule)-1]
		}
		out = append(out, append([]string(nil), rule...))
	}
	return out, rows.Err()
}

func (a *Adapter) SavePolicy(model.Model) error { return ErrReadOnly }

func (a *Adapter) AddPolicy(string, string, []string) error { return ErrReadOnly }

func (a *Adapter) RemovePolicy(string, string, []string) error { return ErrReadOnly }

func (a *Adapter) RemoveFilteredPolicy(string, string, int, ...string) error { return ErrReadOnly }
