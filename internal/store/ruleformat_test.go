package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/types"
)

func TestDecodeCondition(t *testing.T) {
	t.Run("attribute with number threshold", func(t *testing.T) {
		doc := []byte(`{
			"type": "attribute",
			"property": "amount",
			"operator": "gt",
			"threshold": {"kind": "number", "number": "500.00"}
		}`)
		cond, err := DecodeCondition(doc)
		if err != nil {
			t.Fatalf("DecodeCondition failed: %v", err)
		}
		attr, ok := cond.(rules.Attribute)
		if !ok {
			t.Fatalf("expected Attribute, got %T", cond)
		}
		if attr.Property != "amount" || attr.Operator != rules.OpGt {
			t.Errorf("unexpected attribute: %+v", attr)
		}
		if !attr.Threshold.Number.Equal(decimal.RequireFromString("500.00")) {
			t.Errorf("unexpected threshold: %s", attr.Threshold.Number)
		}
	})

	t.Run("nested combinators", func(t *testing.T) {
		doc := []byte(`{
			"type": "and",
			"children": [
				{"type": "attribute", "property": "amount", "operator": "gt",
				 "threshold": {"kind": "number", "number": "500"}},
				{"type": "not", "child":
					{"type": "attribute", "property": "merchant_category", "operator": "eq",
					 "threshold": {"kind": "text", "text": "fuel"}}}
			]
		}`)
		cond, err := DecodeCondition(doc)
		if err != nil {
			t.Fatalf("DecodeCondition failed: %v", err)
		}
		and, ok := cond.(rules.And)
		if !ok {
			t.Fatalf("expected And, got %T", cond)
		}
		if len(and.Children) != 2 {
			t.Fatalf("expected 2 children, got %d", len(and.Children))
		}
		if _, ok := and.Children[1].(rules.Not); !ok {
			t.Errorf("expected Not as second child, got %T", and.Children[1])
		}
	})

	t.Run("threshold kinds", func(t *testing.T) {
		tests := []struct {
			name string
			doc  string
			want rules.ThresholdKind
		}{
			{name: "duration", doc: `{"kind": "duration", "duration": "36h"}`, want: rules.ThresholdDuration},
			{name: "flag", doc: `{"kind": "flag", "flag": true}`, want: rules.ThresholdFlag},
			{name: "set", doc: `{"kind": "set", "set": ["fuel", "repair"]}`, want: rules.ThresholdSet},
			{name: "region", doc: `{"kind": "region", "region": "bay_area"}`, want: rules.ThresholdRegion},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				doc := []byte(`{"type": "attribute", "property": "x", "operator": "eq", "threshold": ` + tt.doc + `}`)
				cond, err := DecodeCondition(doc)
				if err != nil {
					t.Fatalf("DecodeCondition failed: %v", err)
				}
				if got := cond.(rules.Attribute).Threshold.Kind; got != tt.want {
					t.Errorf("expected kind %v, got %v", tt.want, got)
				}
			})
		}
	})

	t.Run("duration round-trips", func(t *testing.T) {
		doc := []byte(`{"type": "attribute", "property": "time_since_last_transaction", "operator": "gt",
			"threshold": {"kind": "duration", "duration": "36h"}}`)
		cond, err := DecodeCondition(doc)
		if err != nil {
			t.Fatalf("DecodeCondition failed: %v", err)
		}
		if got := cond.(rules.Attribute).Threshold.Duration; got != 36*time.Hour {
			t.Errorf("expected 36h, got %v", got)
		}
	})

	t.Run("malformed documents", func(t *testing.T) {
		tests := []struct {
			name    string
			doc     string
			wantErr error
		}{
			{name: "not json", doc: `{{`, wantErr: nil},
			{name: "unknown node type", doc: `{"type": "xor", "children": []}`, wantErr: types.ErrUnknownOperator},
			{name: "unknown operator", doc: `{"type": "attribute", "property": "amount", "operator": "between", "threshold": {"kind": "number", "number": "1"}}`, wantErr: types.ErrUnknownOperator},
			{name: "missing threshold", doc: `{"type": "attribute", "property": "amount", "operator": "gt"}`, wantErr: types.ErrThresholdMismatch},
			{name: "bad number", doc: `{"type": "attribute", "property": "amount", "operator": "gt", "threshold": {"kind": "number", "number": "abc"}}`, wantErr: types.ErrThresholdMismatch},
			{name: "bad duration", doc: `{"type": "attribute", "property": "amount", "operator": "gt", "threshold": {"kind": "duration", "duration": "yesterday"}}`, wantErr: types.ErrThresholdMismatch},
			{name: "not without child", doc: `{"type": "not"}`, wantErr: types.ErrMissingChild},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := DecodeCondition([]byte(tt.doc))
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}

func TestDecodeActions(t *testing.T) {
	doc := []byte(`[
		{"type": "create_anomaly", "anomaly_type": "HighSpend", "reason_template": "amount {amount}"},
		{"type": "update_status", "target_property": "review_flag", "new_value": "flagged"},
		{"type": "notify", "channel": "email", "template": "check {transaction_id}", "role": "fleet_manager"},
		{"type": "invoke_service", "service_ref": "case-opener", "payload_template": "txn={transaction_id}"}
	]`)

	actions, err := DecodeActions(doc)
	if err != nil {
		t.Fatalf("DecodeActions failed: %v", err)
	}
	if len(actions) != 4 {
		t.Fatalf("expected 4 actions, got %d", len(actions))
	}

	create, ok := actions[0].(rules.CreateAnomaly)
	if !ok || create.Type != types.AnomalyHighSpend {
		t.Errorf("unexpected first action: %+v", actions[0])
	}
	if _, ok := actions[1].(rules.UpdateStatus); !ok {
		t.Errorf("expected UpdateStatus, got %T", actions[1])
	}
	notify, ok := actions[2].(rules.Notify)
	if !ok || notify.Role != "fleet_manager" {
		t.Errorf("unexpected notify action: %+v", actions[2])
	}
	if _, ok := actions[3].(rules.InvokeService); !ok {
		t.Errorf("expected InvokeService, got %T", actions[3])
	}

	if _, err := DecodeActions([]byte(`[{"type": "page_everyone"}]`)); !errors.Is(err, types.ErrUnknownOperator) {
		t.Errorf("expected ErrUnknownOperator for unknown action, got %v", err)
	}
}
