// internal/rules/operators.go
package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the nine comparison operators over values already resolved by
 * the evaluation context. Numeric comparisons run in fixed-point decimal
 * arithmetic so monetary thresholds never suffer float rounding; durations
 * compare natively; within_region delegates to the geometry collaborator.
 *
 * Why function-based: nine operators via switch statement is cleaner than
 * nine interface implementations with minimal behavior variation.
 */

// compare applies the operator to the resolved property value and threshold.
// Returns ErrIncomparableValue for operand types the operator cannot handle
// and ErrGeometryLookup when the region collaborator fails.
func compare(op Operator, value any, th Threshold, geo Geometry) (bool, error) {
	switch op {
	case OpEq:
		return compareEqual(value, th)
	case OpNe:
		eq, err := compareEqual(value, th)
		return !eq, err
	case OpGt:
		c, err := compareOrdered(value, th)
		return c > 0, err
	case OpGe:
		c, err := compareOrdered(value, th)
		return c >= 0, err
	case OpLt:
		c, err := compareOrdered(value, th)
		return c < 0, err
	case OpLe:
		c, err := compareOrdered(value, th)
		return c <= 0, err
	case OpContains:
		s, ok := value.(string)
		if !ok {
			return false, incomparable(op, value)
		}
		return strings.Contains(s, th.Text), nil
	case OpWithinRegion:
		return compareRegion(value, th, geo)
	case OpNotInSet:
		s, ok := value.(string)
		if !ok {
			return false, incomparable(op, value)
		}
		return !slices.Contains(th.Set, s), nil
	default:
		return false, fmt.Errorf("operator %v: %w", op, types.ErrUnknownOperator)
	}
}

// compareEqual handles eq semantics per threshold kind.
func compareEqual(value any, th Threshold) (bool, error) {
	switch th.Kind {
	case ThresholdNumber:
		d, ok := value.(decimal.Decimal)
		if !ok {
			return false, incomparable(OpEq, value)
		}
		return d.Equal(th.Number), nil
	case ThresholdText:
		s, ok := value.(string)
		if !ok {
			return false, incomparable(OpEq, value)
		}
		return s == th.Text, nil
	case ThresholdFlag:
		b, ok := value.(bool)
		if !ok {
			return false, incomparable(OpEq, value)
		}
		return b == th.Flag, nil
	case ThresholdDuration:
		d, ok := value.(time.Duration)
		if !ok {
			return false, incomparable(OpEq, value)
		}
		return d == th.Duration, nil
	default:
		return false, incomparable(OpEq, value)
	}
}

// compareOrdered performs three-way comparison (-1/0/1) for gt/ge/lt/le.
// Decimal numbers compare via Cmp, durations compare natively.
func compareOrdered(value any, th Threshold) (int, error) {
	switch th.Kind {
	case ThresholdNumber:
		d, ok := value.(decimal.Decimal)
		if !ok {
			return 0, incomparable(OpGt, value)
		}
		return d.Cmp(th.Number), nil
	case ThresholdDuration:
		d, ok := value.(time.Duration)
		if !ok {
			return 0, incomparable(OpGt, value)
		}
		switch {
		case d < th.Duration:
			return -1, nil
		case d > th.Duration:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, incomparable(OpGt, value)
	}
}

// compareRegion delegates the point-in-region test to the geometry
// collaborator. A missing collaborator or collaborator failure is a
// rule-level error, not a match result.
func compareRegion(value any, th Threshold, geo Geometry) (bool, error) {
	pt, ok := value.(GeoPoint)
	if !ok {
		return false, incomparable(OpWithinRegion, value)
	}
	if geo == nil {
		return false, fmt.Errorf("region %q: no geometry collaborator: %w", th.Region, types.ErrGeometryLookup)
	}
	inside, err := geo.Contains(th.Region, pt.Lat, pt.Lon)
	if err != nil {
		return false, fmt.Errorf("region %q: %v: %w", th.Region, err, types.ErrGeometryLookup)
	}
	return inside, nil
}

func incomparable(op Operator, value any) error {
	return fmt.Errorf("operator %v on %T: %w", op, value, types.ErrIncomparableValue)
}
