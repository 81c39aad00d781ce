package types

import "errors"

// Sentinel errors for watchtower operations.
//
// Rule-scoped errors (ErrUnresolvedProperty, ErrGeometryLookup,
// ErrIncomparableValue, ErrTemplateRender) skip the offending rule or action
// and never abort a batch. Workflow errors (ErrIllegalTransition,
// ErrConcurrentModification) are surfaced to the caller as explicit
// rejections. Malformed-rule errors are detected at load time and never
// reach a detection pass.
var (
	// ErrUnresolvedProperty indicates a condition referenced a property the
	// evaluation context could not supply and the rule did not mark optional.
	ErrUnresolvedProperty = errors.New("property could not be resolved")

	// ErrGeometryLookup indicates the geometry collaborator failed a
	// within_region test.
	ErrGeometryLookup = errors.New("geometry lookup failed")

	// ErrIncomparableValue indicates operand types that the operator cannot
	// compare. Load-time validation makes this unreachable for well-formed
	// rules; it exists so evaluation never guesses a match result.
	ErrIncomparableValue = errors.New("values are not comparable")

	// ErrTemplateRender indicates a template referenced a missing field.
	ErrTemplateRender = errors.New("template rendering failed")

	// ErrIllegalTransition indicates a review-status transition the workflow
	// does not permit.
	ErrIllegalTransition = errors.New("illegal feedback status transition")

	// ErrConcurrentModification indicates the anomaly's status changed
	// between the caller's read and its submission.
	ErrConcurrentModification = errors.New("anomaly modified concurrently")

	// ErrAnomalyNotFound indicates the referenced anomaly does not exist.
	ErrAnomalyNotFound = errors.New("anomaly not found")

	// Malformed-rule sentinels, detected when rules are loaded.

	// ErrEmptyGroup indicates an And/Or condition with no children.
	ErrEmptyGroup = errors.New("and/or condition has no children")

	// ErrMissingChild indicates a Not condition without exactly one child.
	ErrMissingChild = errors.New("not condition requires exactly one child")

	// ErrUnknownProperty indicates a property reference not recognized for
	// the rule's entity kind.
	ErrUnknownProperty = errors.New("unknown property reference")

	// ErrUnknownOperator indicates an operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrThresholdMismatch indicates a threshold kind incompatible with the
	// condition's operator or property type.
	ErrThresholdMismatch = errors.New("threshold incompatible with operator")

	// ErrConditionTooDeep indicates a condition tree exceeding MaxConditionDepth.
	ErrConditionTooDeep = errors.New("condition tree exceeds maximum depth")

	// ErrNoActions indicates a rule with an empty action list.
	ErrNoActions = errors.New("rule has no actions")

	// ErrUnknownEntityKind indicates an applicable-entity-type tag outside
	// the supported transaction kinds.
	ErrUnknownEntityKind = errors.New("unknown entity kind")
)
