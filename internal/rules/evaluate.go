// internal/rules/evaluate.go
package rules

import (
	"fmt"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Condition evaluation.
 *
 * Evaluate is a pure function of (Condition, Context): no hidden state, no
 * I/O, identical inputs always produce identical results. This is what makes
 * re-evaluation idempotent and batch detection trivially parallelizable.
 *
 * Short-circuit semantics: And stops on the first false child, Or on the
 * first true one, in the fixed authored order. Errors encountered before the
 * short-circuit point always propagate; short-circuiting can only skip work,
 * never suppress a configuration problem that evaluation already hit.
 *
 * Error semantics: a required property the context cannot resolve fails the
 * rule (not the batch) with ErrUnresolvedProperty. Optional properties
 * evaluate to a non-match instead. Geometry collaborator failures propagate
 * as ErrGeometryLookup.
 */

// Evaluate checks the condition tree against the evaluation context.
func Evaluate(cond Condition, ctx Context) (bool, error) {
	switch c := cond.(type) {
	case Attribute:
		return evaluateAttribute(c, ctx)
	case And:
		for _, child := range c.Children {
			matched, err := Evaluate(child, ctx)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, child := range c.Children {
			matched, err := Evaluate(child, ctx)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	case Not:
		matched, err := Evaluate(c.Child, ctx)
		if err != nil {
			return false, err
		}
		return !matched, nil
	default:
		return false, fmt.Errorf("condition type %T: %w", cond, types.ErrUnknownOperator)
	}
}

// evaluateAttribute resolves the property and applies the operator.
func evaluateAttribute(attr Attribute, ctx Context) (bool, error) {
	value, ok := ctx.Resolve(attr.Property)
	if !ok {
		if attr.Optional {
			return false, nil
		}
		return false, fmt.Errorf("property %q: %w", attr.Property, types.ErrUnresolvedProperty)
	}
	return compare(attr.Operator, value, attr.Threshold, ctx.Geometry())
}
