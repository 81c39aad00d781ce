package detect

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

func TestRenderTemplate(t *testing.T) {
	fields := map[string]string{
		"amount":        "750.00",
		"merchant_name": "ACME FUEL STOP #42",
	}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  error
	}{
		{name: "no placeholders", template: "flat text", want: "flat text"},
		{name: "single placeholder", template: "amount {amount} exceeds 500", want: "amount 750.00 exceeds 500"},
		{name: "multiple placeholders", template: "{merchant_name}: {amount}", want: "ACME FUEL STOP #42: 750.00"},
		{name: "adjacent placeholders", template: "{amount}{amount}", want: "750.00750.00"},
		{name: "empty template", template: "", want: ""},
		{name: "missing field", template: "driver {driver_id}", wantErr: types.ErrTemplateRender},
		{name: "unterminated placeholder", template: "amount {amount", wantErr: types.ErrTemplateRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderTemplate(tt.template, fields)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("renderTemplate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTemplateFields_OptionalPresence(t *testing.T) {
	txn := &types.Transaction{
		ID:               "txn-1",
		Kind:             types.KindGeneric,
		Timestamp:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Amount:           decimal.RequireFromString("42.00"),
		Currency:         "USD",
		MerchantName:     "ACME",
		MerchantCategory: "parts",
	}

	fields := templateFields(txn)
	if fields["amount"] != "42" && fields["amount"] != "42.00" {
		t.Errorf("unexpected amount rendering: %q", fields["amount"])
	}
	if fields["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp rendering: %q", fields["timestamp"])
	}
	for _, absent := range []string{"vehicle_id", "driver_id", "fuel_type", "fuel_volume", "maintenance_type", "odometer_reading", "ml_score", "ml_label"} {
		if _, ok := fields[absent]; ok {
			t.Errorf("field %s should be absent on a bare transaction", absent)
		}
	}

	score := 0.93
	txn.VehicleID = "veh-7"
	txn.MLScore = &score
	fields = templateFields(txn)
	if fields["vehicle_id"] != "veh-7" {
		t.Errorf("expected vehicle_id, got %q", fields["vehicle_id"])
	}
	if fields["ml_score"] != "0.93" {
		t.Errorf("expected ml_score 0.93, got %q", fields["ml_score"])
	}
}
