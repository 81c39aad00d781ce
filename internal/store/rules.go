// internal/store/rules.go
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Rule repository.
 *
 * LoadActiveRules returns a self-consistent, immutable snapshot captured in
 * one query: a detection batch evaluates against exactly the rules that were
 * active at load time, and rule edits during the batch change nothing.
 *
 * Rules that fail to decode or compile are configuration problems: each is
 * logged and skipped so one bad definition cannot block the rest of the
 * policy, matching how rule-level errors behave during evaluation. A failed
 * query aborts the load; no partial snapshot is ever returned.
 */

type ruleRow struct {
	RuleID     string `db:"rule_id"`
	Name       string `db:"name"`
	Priority   int    `db:"priority"`
	Active     bool   `db:"active"`
	EntityKind string `db:"entity_kind"`
	Condition  []byte `db:"condition"`
	Actions    []byte `db:"actions"`
}

// LoadActiveRules captures a snapshot of all active rules.
func (s *Store) LoadActiveRules(ctx context.Context) (*rules.Snapshot, error) {
	var rows []ruleRow
	if err := s.selectAll(ctx, "list-active-rules", &rows, true); err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	compiled := make([]*rules.CompiledRule, 0, len(rows))
	for _, row := range rows {
		rule, err := decodeRule(row)
		if err == nil {
			var cr *rules.CompiledRule
			cr, err = rules.Compile(rule)
			if err == nil {
				compiled = append(compiled, cr)
				continue
			}
		}
		s.logger.Warn("skipping malformed rule",
			slog.String("rule_id", row.RuleID),
			slog.String("error", err.Error()))
	}

	return rules.NewSnapshot(time.Now().UTC(), compiled), nil
}

func decodeRule(row ruleRow) (*rules.Rule, error) {
	cond, err := DecodeCondition(row.Condition)
	if err != nil {
		return nil, err
	}
	actions, err := DecodeActions(row.Actions)
	if err != nil {
		return nil, err
	}
	return &rules.Rule{
		ID:         types.RuleID(row.RuleID),
		Name:       row.Name,
		Priority:   row.Priority,
		Active:     row.Active,
		EntityKind: types.TransactionKind(row.EntityKind),
		Condition:  cond,
		Actions:    actions,
	}, nil
}

// InsertRule persists one rule definition with its condition and action
// documents. Used by the configuration loader CLI and tests.
func (s *Store) InsertRule(ctx context.Context, rule *rules.Rule, ruleSetID string, condition, actions []byte) error {
	_, err := s.exec(ctx, "insert-rule",
		string(rule.ID),
		ruleSetID,
		rule.Name,
		rule.Priority,
		rule.Active,
		string(rule.EntityKind),
		condition,
		actions,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
	}
	return nil
}

// InsertRuleSet persists rule set grouping metadata.
func (s *Store) InsertRuleSet(ctx context.Context, set *rules.RuleSet) error {
	if _, err := s.exec(ctx, "insert-rule-set", set.ID, set.PolicyID, set.Name); err != nil {
		return fmt.Errorf("failed to insert rule set %s: %w", set.ID, err)
	}
	return nil
}

// InsertPolicy persists policy metadata.
func (s *Store) InsertPolicy(ctx context.Context, policy *rules.Policy) error {
	if _, err := s.exec(ctx, "insert-policy", policy.ID, policy.Name, policy.Description); err != nil {
		return fmt.Errorf("failed to insert policy %s: %w", policy.ID, err)
	}
	return nil
}
