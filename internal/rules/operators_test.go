package rules

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

func num(s string) Threshold {
	return Threshold{Kind: ThresholdNumber, Number: decimal.RequireFromString(s)}
}

func TestCompare_Numbers(t *testing.T) {
	tests := []struct {
		name    string
		op      Operator
		value   any
		th      Threshold
		want    bool
		wantErr error
	}{
		{name: "eq match", op: OpEq, value: decimal.RequireFromString("500"), th: num("500"), want: true},
		{name: "eq scale-insensitive", op: OpEq, value: decimal.RequireFromString("500.00"), th: num("500"), want: true},
		{name: "eq mismatch", op: OpEq, value: decimal.RequireFromString("499.99"), th: num("500"), want: false},
		{name: "ne match", op: OpNe, value: decimal.RequireFromString("499.99"), th: num("500"), want: true},
		{name: "gt above", op: OpGt, value: decimal.RequireFromString("500.01"), th: num("500"), want: true},
		{name: "gt equal", op: OpGt, value: decimal.RequireFromString("500"), th: num("500"), want: false},
		{name: "ge equal", op: OpGe, value: decimal.RequireFromString("500"), th: num("500"), want: true},
		{name: "lt below", op: OpLt, value: decimal.RequireFromString("499.9999"), th: num("500"), want: true},
		{name: "le equal", op: OpLe, value: decimal.RequireFromString("500.00"), th: num("500"), want: true},
		{name: "le above", op: OpLe, value: decimal.RequireFromString("500.0001"), th: num("500"), want: false},
		{
			name:    "type mismatch",
			op:      OpGt,
			value:   "not a number",
			th:      num("500"),
			wantErr: types.ErrIncomparableValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compare(tt.op, tt.value, tt.th, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("compare failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompare_TextAndSets(t *testing.T) {
	tests := []struct {
		name  string
		op    Operator
		value any
		th    Threshold
		want  bool
	}{
		{name: "text eq", op: OpEq, value: "diesel", th: Threshold{Kind: ThresholdText, Text: "diesel"}, want: true},
		{name: "text eq case-sensitive", op: OpEq, value: "Diesel", th: Threshold{Kind: ThresholdText, Text: "diesel"}, want: false},
		{name: "contains substring", op: OpContains, value: "ACME FUEL STOP #42", th: Threshold{Kind: ThresholdText, Text: "FUEL"}, want: true},
		{name: "contains absent", op: OpContains, value: "ACME PARTS", th: Threshold{Kind: ThresholdText, Text: "FUEL"}, want: false},
		{name: "not_in_set outside", op: OpNotInSet, value: "casino", th: Threshold{Kind: ThresholdSet, Set: []string{"fuel", "repair"}}, want: true},
		{name: "not_in_set inside", op: OpNotInSet, value: "fuel", th: Threshold{Kind: ThresholdSet, Set: []string{"fuel", "repair"}}, want: false},
		{name: "not_in_set empty set", op: OpNotInSet, value: "anything", th: Threshold{Kind: ThresholdSet}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compare(tt.op, tt.value, tt.th, nil)
			if err != nil {
				t.Fatalf("compare failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompare_Durations(t *testing.T) {
	th := Threshold{Kind: ThresholdDuration, Duration: 36 * time.Hour}

	got, err := compare(OpGt, 48*time.Hour, th, nil)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if !got {
		t.Error("48h should exceed 36h threshold")
	}

	got, err = compare(OpGt, 36*time.Hour, th, nil)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if got {
		t.Error("36h should not exceed 36h threshold")
	}
}

type fakeGeometry struct {
	inside bool
	err    error
	calls  []string
}

func (g *fakeGeometry) Contains(region string, lat, lon float64) (bool, error) {
	g.calls = append(g.calls, region)
	return g.inside, g.err
}

func TestCompare_Region(t *testing.T) {
	th := Threshold{Kind: ThresholdRegion, Region: "bay_area"}
	pt := GeoPoint{Lat: 37.7, Lon: -122.4}

	t.Run("delegates to collaborator", func(t *testing.T) {
		geo := &fakeGeometry{inside: true}
		got, err := compare(OpWithinRegion, pt, th, geo)
		if err != nil {
			t.Fatalf("compare failed: %v", err)
		}
		if !got {
			t.Error("expected point inside region")
		}
		if len(geo.calls) != 1 || geo.calls[0] != "bay_area" {
			t.Errorf("expected one lookup of bay_area, got %v", geo.calls)
		}
	})

	t.Run("collaborator failure", func(t *testing.T) {
		geo := &fakeGeometry{err: fmt.Errorf("index offline")}
		_, err := compare(OpWithinRegion, pt, th, geo)
		if !errors.Is(err, types.ErrGeometryLookup) {
			t.Fatalf("expected ErrGeometryLookup, got %v", err)
		}
	})

	t.Run("missing collaborator", func(t *testing.T) {
		_, err := compare(OpWithinRegion, pt, th, nil)
		if !errors.Is(err, types.ErrGeometryLookup) {
			t.Fatalf("expected ErrGeometryLookup, got %v", err)
		}
	})
}

// Ordered operators must agree with each other: gt is the negation of le,
// lt the negation of ge, for every pair of decimal operands.
func TestCompare_OrderedComplement(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("gt complements le and lt complements ge", prop.ForAll(
		func(a, b int64) bool {
			value := decimal.New(a, -2)
			th := Threshold{Kind: ThresholdNumber, Number: decimal.New(b, -2)}

			gt, err1 := compare(OpGt, value, th, nil)
			le, err2 := compare(OpLe, value, th, nil)
			lt, err3 := compare(OpLt, value, th, nil)
			ge, err4 := compare(OpGe, value, th, nil)
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				return false
			}
			return gt == !le && lt == !ge
		},
		gen.Int64(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
