package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

func fuelTxn() *types.Transaction {
	volume := decimal.RequireFromString("40.5")
	lat, lon := 37.77, -122.41
	odometer := int64(84123)
	return &types.Transaction{
		ID:               "txn-1",
		Kind:             types.KindFuel,
		Timestamp:        time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC), // Saturday, late night
		Amount:           decimal.RequireFromString("182.25"),
		Currency:         "USD",
		MerchantName:     "ACME FUEL STOP #42",
		MerchantCategory: "fuel",
		Latitude:         &lat,
		Longitude:        &lon,
		VehicleID:        "veh-7",
		DriverID:         "drv-3",
		FuelType:         "diesel",
		FuelVolume:       &volume,
		FuelVolumeUnit:   "gallons",
		OdometerReading:  &odometer,
	}
}

func TestTransactionContext_Resolve(t *testing.T) {
	ctx := &TransactionContext{Txn: fuelTxn()}

	tests := []struct {
		property string
		want     any
	}{
		{property: "transaction_id", want: "txn-1"},
		{property: "amount", want: decimal.RequireFromString("182.25")},
		{property: "currency", want: "USD"},
		{property: "merchant_name", want: "ACME FUEL STOP #42"},
		{property: "vehicle_id", want: "veh-7"},
		{property: "hour_of_day", want: decimal.NewFromInt(23)},
		{property: "day_of_week", want: decimal.NewFromInt(5)}, // Saturday, Monday = 0
		{property: "is_weekend", want: true},
		{property: "is_business_hours", want: false},
		{property: "fuel_type", want: "diesel"},
		{property: "fuel_volume", want: decimal.RequireFromString("40.5")},
		{property: "price_per_unit", want: decimal.RequireFromString("4.5")},
		{property: "odometer_reading", want: decimal.NewFromInt(84123)},
		{property: "window_count", want: decimal.NewFromInt(0)},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			got, ok := ctx.Resolve(tt.property)
			if !ok {
				t.Fatalf("property %s unresolved", tt.property)
			}
			if want, isDec := tt.want.(decimal.Decimal); isDec {
				d, isDecGot := got.(decimal.Decimal)
				if !isDecGot {
					t.Fatalf("expected decimal, got %T", got)
				}
				if !d.Equal(want) {
					t.Errorf("expected %s, got %s", want, d)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransactionContext_AbsentProperties(t *testing.T) {
	txn := &types.Transaction{
		ID:        "txn-2",
		Kind:      types.KindGeneric,
		Timestamp: time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC),
		Amount:    decimal.RequireFromString("25.00"),
		Currency:  "USD",
	}
	ctx := &TransactionContext{Txn: txn}

	for _, property := range []string{
		"latitude", "longitude", "location", "vehicle_id", "driver_id",
		"ml_score", "ml_label", "fuel_type", "fuel_volume", "price_per_unit",
		"maintenance_type", "odometer_reading",
		"days_since_last_transaction", "time_since_last_transaction",
	} {
		if _, ok := ctx.Resolve(property); ok {
			t.Errorf("property %s should be unresolved on a bare generic transaction", property)
		}
	}

	if _, ok := ctx.Resolve("no_such_property"); ok {
		t.Error("unknown property must not resolve")
	}
}

func TestTransactionContext_PricePerUnitZeroVolume(t *testing.T) {
	txn := fuelTxn()
	zero := decimal.Zero
	txn.FuelVolume = &zero
	ctx := &TransactionContext{Txn: txn}

	if _, ok := ctx.Resolve("price_per_unit"); ok {
		t.Error("price_per_unit must be unresolved when fuel volume is zero")
	}
}

func TestTransactionContext_History(t *testing.T) {
	txn := fuelTxn()
	prior := func(age time.Duration) *types.Transaction {
		return &types.Transaction{
			ID:        types.TransactionID("prior-" + age.String()),
			Kind:      types.KindFuel,
			Timestamp: txn.Timestamp.Add(-age),
			Amount:    decimal.RequireFromString("50"),
			VehicleID: txn.VehicleID,
		}
	}
	ctx := &TransactionContext{
		Txn:     txn,
		History: []*types.Transaction{prior(72 * time.Hour), prior(49 * time.Hour)},
	}

	got, ok := ctx.Resolve("window_count")
	if !ok || !got.(decimal.Decimal).Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected window_count 2, got %v", got)
	}

	got, ok = ctx.Resolve("time_since_last_transaction")
	if !ok || got.(time.Duration) != 49*time.Hour {
		t.Errorf("expected 49h since last transaction, got %v", got)
	}

	got, ok = ctx.Resolve("days_since_last_transaction")
	if !ok || !got.(decimal.Decimal).Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected 2 days since last transaction, got %v", got)
	}
}
