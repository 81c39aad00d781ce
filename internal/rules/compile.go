// internal/rules/compile.go
package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles Rule to CompiledRule, rejecting malformed definitions before they
 * can enter a detection pass:
 *   1. Entity kind must be a supported transaction kind
 *   2. Condition tree must be structurally sound (non-empty And/Or groups,
 *      Not with exactly one child, bounded depth)
 *   3. Every property reference must be recognized for the entity kind
 *   4. Operator, property type, and threshold kind must agree
 *   5. Rule must carry at least one action
 *
 * Why compile-time validation: moving error detection to rule-load time means
 * evaluation never encounters a structurally broken rule, so a rule-level
 * evaluation error always signals a data problem (unresolvable property,
 * geometry failure), not a configuration one.
 *
 * Child order is preserved exactly as authored: And/Or order never changes
 * the result, but it is the author's short-circuit cost ordering and must
 * stay fixed for deterministic evaluation.
 */

// MaxConditionDepth bounds condition tree nesting.
// 16 levels handles any practical policy without risking deep recursion.
const MaxConditionDepth = 16

// CompiledRule is a validated rule ready for evaluation.
type CompiledRule struct {
	RuleID     types.RuleID
	Name       string
	Priority   int
	Active     bool
	EntityKind types.TransactionKind
	Condition  Condition
	Actions    []Action
}

// Compile validates a rule definition for evaluation.
// Returns a malformed-rule sentinel (wrapped with positional context) when
// the definition cannot be evaluated safely.
func Compile(rule *Rule) (*CompiledRule, error) {
	if !ValidEntityKind(rule.EntityKind) {
		return nil, fmt.Errorf("rule %s: entity kind %q: %w", rule.ID, rule.EntityKind, types.ErrUnknownEntityKind)
	}
	if rule.Condition == nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, types.ErrMissingChild)
	}
	if err := validateCondition(rule.Condition, rule.EntityKind, 1); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if len(rule.Actions) == 0 {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, types.ErrNoActions)
	}

	return &CompiledRule{
		RuleID:     rule.ID,
		Name:       rule.Name,
		Priority:   rule.Priority,
		Active:     rule.Active,
		EntityKind: rule.EntityKind,
		Condition:  rule.Condition,
		Actions:    rule.Actions,
	}, nil
}

// validateCondition walks the tree checking structure, property references,
// and operator/threshold compatibility.
func validateCondition(cond Condition, entity types.TransactionKind, depth int) error {
	if depth > MaxConditionDepth {
		return types.ErrConditionTooDeep
	}

	switch c := cond.(type) {
	case Attribute:
		return validateAttribute(c, entity)
	case And:
		if len(c.Children) == 0 {
			return types.ErrEmptyGroup
		}
		for _, child := range c.Children {
			if err := validateCondition(child, entity, depth+1); err != nil {
				return err
			}
		}
		return nil
	case Or:
		if len(c.Children) == 0 {
			return types.ErrEmptyGroup
		}
		for _, child := range c.Children {
			if err := validateCondition(child, entity, depth+1); err != nil {
				return err
			}
		}
		return nil
	case Not:
		if c.Child == nil {
			return types.ErrMissingChild
		}
		return validateCondition(c.Child, entity, depth+1)
	default:
		return fmt.Errorf("condition type %T: %w", cond, types.ErrUnknownOperator)
	}
}

// validateAttribute checks the property reference and that the operator can
// compare the property's value type against the threshold's kind.
func validateAttribute(attr Attribute, entity types.TransactionKind) error {
	prop, ok := PropertyKind(entity, attr.Property)
	if !ok {
		return fmt.Errorf("property %q for kind %q: %w", attr.Property, entity, types.ErrUnknownProperty)
	}

	switch attr.Operator {
	case OpEq, OpNe:
		if compatible := (prop == PropNumber && attr.Threshold.Kind == ThresholdNumber) ||
			(prop == PropText && attr.Threshold.Kind == ThresholdText) ||
			(prop == PropFlag && attr.Threshold.Kind == ThresholdFlag) ||
			(prop == PropDuration && attr.Threshold.Kind == ThresholdDuration); !compatible {
			return fmt.Errorf("property %q: %w", attr.Property, types.ErrThresholdMismatch)
		}
	case OpGt, OpGe, OpLt, OpLe:
		if compatible := (prop == PropNumber && attr.Threshold.Kind == ThresholdNumber) ||
			(prop == PropDuration && attr.Threshold.Kind == ThresholdDuration); !compatible {
			return fmt.Errorf("property %q: %w", attr.Property, types.ErrThresholdMismatch)
		}
	case OpContains:
		if prop != PropText || attr.Threshold.Kind != ThresholdText {
			return fmt.Errorf("property %q: %w", attr.Property, types.ErrThresholdMismatch)
		}
	case OpWithinRegion:
		if prop != PropPoint || attr.Threshold.Kind != ThresholdRegion {
			return fmt.Errorf("property %q: %w", attr.Property, types.ErrThresholdMismatch)
		}
	case OpNotInSet:
		if prop != PropText || attr.Threshold.Kind != ThresholdSet {
			return fmt.Errorf("property %q: %w", attr.Property, types.ErrThresholdMismatch)
		}
	default:
		return fmt.Errorf("property %q: %w", attr.Property, types.ErrUnknownOperator)
	}
	return nil
}

// Snapshot is an immutable, consistently-read set of compiled rules used for
// one detection batch. Captured once per batch and discarded afterwards so
// rule edits never change results mid-batch.
type Snapshot struct {
	LoadedAt time.Time
	rules    []*CompiledRule
}

// NewSnapshot builds a snapshot with deterministic rule order:
// ascending priority, ties broken by rule ID ascending.
func NewSnapshot(loadedAt time.Time, rules []*CompiledRule) *Snapshot {
	ordered := make([]*CompiledRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].RuleID < ordered[j].RuleID
	})
	return &Snapshot{LoadedAt: loadedAt, rules: ordered}
}

// Rules returns all rules in evaluation order.
// Callers must treat the slice as read-only.
func (s *Snapshot) Rules() []*CompiledRule {
	return s.rules
}

// ForKind returns active rules applicable to a transaction kind, in
// evaluation order. Generic rules apply to every kind; fuel and maintenance
// rules only to their own.
func (s *Snapshot) ForKind(kind types.TransactionKind) []*CompiledRule {
	var out []*CompiledRule
	for _, r := range s.rules {
		if !r.Active {
			continue
		}
		if r.EntityKind == types.KindGeneric || r.EntityKind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the total number of rules in the snapshot, active or not.
func (s *Snapshot) Len() int {
	return len(s.rules)
}
