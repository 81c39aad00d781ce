package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/fleetsight/watchtower/internal/types"
)

func validRule(id string) *Rule {
	return &Rule{
		ID:         types.RuleID(id),
		Name:       "high spend",
		Priority:   100,
		Active:     true,
		EntityKind: types.KindGeneric,
		Condition:  attr("amount", OpGt, num("500")),
		Actions:    []Action{CreateAnomaly{Type: types.AnomalyHighSpend, ReasonTemplate: "amount {amount}"}},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rule)
		wantErr error
	}{
		{name: "valid rule", mutate: func(r *Rule) {}},
		{
			name:    "unknown entity kind",
			mutate:  func(r *Rule) { r.EntityKind = "toll" },
			wantErr: types.ErrUnknownEntityKind,
		},
		{
			name:    "nil condition",
			mutate:  func(r *Rule) { r.Condition = nil },
			wantErr: types.ErrMissingChild,
		},
		{
			name:    "empty and group",
			mutate:  func(r *Rule) { r.Condition = And{} },
			wantErr: types.ErrEmptyGroup,
		},
		{
			name:    "empty or group",
			mutate:  func(r *Rule) { r.Condition = Or{} },
			wantErr: types.ErrEmptyGroup,
		},
		{
			name:    "not without child",
			mutate:  func(r *Rule) { r.Condition = Not{} },
			wantErr: types.ErrMissingChild,
		},
		{
			name:    "no actions",
			mutate:  func(r *Rule) { r.Actions = nil },
			wantErr: types.ErrNoActions,
		},
		{
			name:    "unknown property",
			mutate:  func(r *Rule) { r.Condition = attr("spend_velocity", OpGt, num("1")) },
			wantErr: types.ErrUnknownProperty,
		},
		{
			name:    "fuel property on generic rule",
			mutate:  func(r *Rule) { r.Condition = attr("fuel_volume", OpGt, num("100")) },
			wantErr: types.ErrUnknownProperty,
		},
		{
			name: "fuel property on fuel rule",
			mutate: func(r *Rule) {
				r.EntityKind = types.KindFuel
				r.Condition = attr("fuel_volume", OpGt, num("100"))
			},
		},
		{
			name:    "ordered operator on text property",
			mutate:  func(r *Rule) { r.Condition = attr("merchant_name", OpGt, num("1")) },
			wantErr: types.ErrThresholdMismatch,
		},
		{
			name:    "contains on number property",
			mutate:  func(r *Rule) { r.Condition = attr("amount", OpContains, Threshold{Kind: ThresholdText, Text: "5"}) },
			wantErr: types.ErrThresholdMismatch,
		},
		{
			name:    "within_region needs point property",
			mutate:  func(r *Rule) { r.Condition = attr("amount", OpWithinRegion, Threshold{Kind: ThresholdRegion, Region: "x"}) },
			wantErr: types.ErrThresholdMismatch,
		},
		{
			name:   "within_region on location",
			mutate: func(r *Rule) { r.Condition = attr("location", OpWithinRegion, Threshold{Kind: ThresholdRegion, Region: "x"}) },
		},
		{
			name:    "threshold kind mismatch",
			mutate:  func(r *Rule) { r.Condition = attr("amount", OpEq, Threshold{Kind: ThresholdText, Text: "500"}) },
			wantErr: types.ErrThresholdMismatch,
		},
		{
			name: "excessive nesting",
			mutate: func(r *Rule) {
				cond := Condition(attr("amount", OpGt, num("1")))
				for i := 0; i < MaxConditionDepth; i++ {
					cond = Not{Child: cond}
				}
				r.Condition = cond
			},
			wantErr: types.ErrConditionTooDeep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule("rule-1")
			tt.mutate(rule)
			compiled, err := Compile(rule)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if compiled.RuleID != rule.ID {
				t.Errorf("expected rule id %s, got %s", rule.ID, compiled.RuleID)
			}
		})
	}
}

func compiledRule(id string, priority int, kind types.TransactionKind, active bool) *CompiledRule {
	r := validRule(id)
	r.Priority = priority
	r.EntityKind = kind
	r.Active = active
	compiled, err := Compile(r)
	if err != nil {
		panic(err)
	}
	return compiled
}

func TestSnapshot_Order(t *testing.T) {
	snap := NewSnapshot(time.Now(), []*CompiledRule{
		compiledRule("rule-c", 100, types.KindGeneric, true),
		compiledRule("rule-a", 200, types.KindGeneric, true),
		compiledRule("rule-b", 100, types.KindGeneric, true),
		compiledRule("rule-d", 50, types.KindGeneric, true),
	})

	var ids []string
	for _, r := range snap.Rules() {
		ids = append(ids, string(r.RuleID))
	}

	want := []string{"rule-d", "rule-b", "rule-c", "rule-a"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}

func TestSnapshot_ForKind(t *testing.T) {
	snap := NewSnapshot(time.Now(), []*CompiledRule{
		compiledRule("generic-1", 10, types.KindGeneric, true),
		compiledRule("fuel-1", 20, types.KindFuel, true),
		compiledRule("maint-1", 30, types.KindMaintenance, true),
		compiledRule("inactive-1", 5, types.KindGeneric, false),
	})

	tests := []struct {
		kind types.TransactionKind
		want []string
	}{
		{kind: types.KindFuel, want: []string{"generic-1", "fuel-1"}},
		{kind: types.KindMaintenance, want: []string{"generic-1", "maint-1"}},
		{kind: types.KindGeneric, want: []string{"generic-1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			rules := snap.ForKind(tt.kind)
			if len(rules) != len(tt.want) {
				t.Fatalf("expected %d rules, got %d", len(tt.want), len(rules))
			}
			for i, r := range rules {
				if string(r.RuleID) != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], r.RuleID)
				}
			}
		})
	}
}
