// internal/rules/condition.go
package rules

/*
 * Domain types for rule evaluation.
 *
 * Provides Condition, Threshold, Action, Rule, RuleSet, and Policy structures
 * used for compilation and evaluation. These types are wire-format agnostic -
 * JSON-to-types conversion happens at the configuration-loading boundary
 * (internal/store).
 *
 * Key types:
 *   - Condition: recursively composable predicate tree (closed variant set)
 *   - Attribute: leaf comparison of one property against a threshold
 *   - And/Or/Not: boolean combinators with fixed child order
 *   - Threshold: named scalar (number, text, duration, flag, set, region)
 *   - Rule: prioritized pairing of one condition tree and ordered actions
 *
 * Trees are finite and acyclic: constructed bottom-up at load time, no
 * back-references, shared read-only across evaluations.
 */

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

// Operator enumerates the supported attribute comparison operators.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpContains
	OpWithinRegion
	OpNotInSet
)

// String returns the canonical configuration token for the operator.
func (op Operator) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpContains:
		return "contains"
	case OpWithinRegion:
		return "within_region"
	case OpNotInSet:
		return "not_in_set"
	default:
		return "unspecified"
	}
}

// ParseOperator converts a configuration token to an Operator.
// Returns ErrUnknownOperator for tokens outside the supported set.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "eq":
		return OpEq, nil
	case "ne":
		return OpNe, nil
	case "gt":
		return OpGt, nil
	case "ge":
		return OpGe, nil
	case "lt":
		return OpLt, nil
	case "le":
		return OpLe, nil
	case "contains":
		return OpContains, nil
	case "within_region":
		return OpWithinRegion, nil
	case "not_in_set":
		return OpNotInSet, nil
	default:
		return OpUnspecified, types.ErrUnknownOperator
	}
}

// ThresholdKind discriminates the value held by a Threshold.
type ThresholdKind int

const (
	ThresholdUnspecified ThresholdKind = iota
	ThresholdNumber
	ThresholdText
	ThresholdDuration
	ThresholdFlag
	ThresholdSet
	ThresholdRegion
)

// Threshold is a named scalar owned by the rule that references it.
// Immutable once the owning rule version is published. Exactly one value
// field is meaningful, selected by Kind.
type Threshold struct {
	Name     string
	Kind     ThresholdKind
	Number   decimal.Decimal // ThresholdNumber: fixed-point, never float
	Text     string          // ThresholdText
	Duration time.Duration   // ThresholdDuration
	Flag     bool            // ThresholdFlag
	Set      []string        // ThresholdSet: ordered allowed tokens
	Region   string          // ThresholdRegion: geometry collaborator reference
	Unit     string          // optional display unit
}

// Condition is the closed union of predicate tree nodes.
type Condition interface {
	isCondition()
}

// Attribute compares one named property of the evaluation context against a
// threshold. Optional marks properties the rule tolerates being absent; an
// absent optional property evaluates to false instead of failing the rule.
type Attribute struct {
	Property  string
	Operator  Operator
	Threshold Threshold
	Optional  bool
}

// And matches when every child matches. Children are a non-empty ordered
// sequence: order never changes the result, only where evaluation stops.
type And struct {
	Children []Condition
}

// Or matches when any child matches.
type Or struct {
	Children []Condition
}

// Not inverts its single child.
type Not struct {
	Child Condition
}

func (Attribute) isCondition() {}
func (And) isCondition()       {}
func (Or) isCondition()        {}
func (Not) isCondition()       {}

// Action is the closed union of declarative effect descriptions attached to
// a rule. Execution of Notify/InvokeService is delegated externally.
type Action interface {
	isAction()
}

// CreateAnomaly produces an anomaly draft when the owning rule matches.
type CreateAnomaly struct {
	Type           types.AnomalyType
	ReasonTemplate string
}

// UpdateStatus requests a property change on the triggering transaction's
// record, handed to an external mutation collaborator.
type UpdateStatus struct {
	TargetProperty string
	NewValue       string
}

// Notify requests delivery of a rendered message to a role over a channel.
type Notify struct {
	Channel  string
	Template string
	Role     string
}

// InvokeService requests invocation of an external service with a rendered
// payload.
type InvokeService struct {
	ServiceRef      string
	PayloadTemplate string
}

func (CreateAnomaly) isAction() {}
func (UpdateStatus) isAction()  {}
func (Notify) isAction()        {}
func (InvokeService) isAction() {}

// Rule is a complete rule definition prior to compilation.
// Lower priority evaluates first; ties break by rule ID ascending.
type Rule struct {
	ID         types.RuleID
	Name       string
	Priority   int
	Active     bool
	EntityKind types.TransactionKind
	Condition  Condition
	Actions    []Action
}

// RuleSet groups rules under a policy. Grouping and metadata only; rule sets
// carry no behavior beyond ownership.
type RuleSet struct {
	ID       string
	PolicyID string
	Name     string
	Rules    []Rule
}

// Policy is the top-level grouping for rule sets.
type Policy struct {
	ID          string
	Name        string
	Description string
}
