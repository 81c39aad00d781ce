// internal/store/transactions.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Transaction reads and writes.
 *
 * Transactions originate upstream; this store only ingests and reads them.
 * Amounts and fuel volumes persist as decimal strings, never as floats, so
 * values round-trip exactly into the fixed-point arithmetic the evaluator
 * uses. Timestamps persist as RFC3339 UTC strings for cross-driver
 * consistency.
 */

type transactionRow struct {
	TransactionID   string   `db:"transaction_id"`
	Kind            string   `db:"kind"`
	Timestamp       string   `db:"ts"`
	Amount          string   `db:"amount"`
	Currency        string   `db:"currency"`
	MerchantName    string   `db:"merchant_name"`
	MerchantCat     string   `db:"merchant_category"`
	Latitude        *float64 `db:"latitude"`
	Longitude       *float64 `db:"longitude"`
	VehicleID       *string  `db:"vehicle_id"`
	DriverID        *string  `db:"driver_id"`
	FuelType        *string  `db:"fuel_type"`
	FuelVolume      *string  `db:"fuel_volume"`
	FuelVolumeUnit  *string  `db:"fuel_volume_unit"`
	MaintenanceType *string  `db:"maintenance_type"`
	OdometerReading *int64   `db:"odometer_reading"`
	MLScore         *float64 `db:"ml_score"`
	MLLabel         *string  `db:"ml_label"`
}

func (r transactionRow) toTransaction() (*types.Transaction, error) {
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("transaction %s ts: %w", r.TransactionID, err)
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s amount: %w", r.TransactionID, err)
	}

	txn := &types.Transaction{
		ID:               types.TransactionID(r.TransactionID),
		Kind:             types.TransactionKind(r.Kind),
		Timestamp:        ts,
		Amount:           amount,
		Currency:         r.Currency,
		MerchantName:     r.MerchantName,
		MerchantCategory: r.MerchantCat,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		OdometerReading:  r.OdometerReading,
		MLScore:          r.MLScore,
	}
	txn.VehicleID = deref(r.VehicleID)
	txn.DriverID = deref(r.DriverID)
	txn.FuelType = deref(r.FuelType)
	txn.FuelVolumeUnit = deref(r.FuelVolumeUnit)
	txn.MaintenanceType = deref(r.MaintenanceType)
	txn.MLLabel = deref(r.MLLabel)
	if r.FuelVolume != nil {
		volume, err := decimal.NewFromString(*r.FuelVolume)
		if err != nil {
			return nil, fmt.Errorf("transaction %s fuel_volume: %w", r.TransactionID, err)
		}
		txn.FuelVolume = &volume
	}
	return txn, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// InsertTransaction ingests one upstream transaction.
func (s *Store) InsertTransaction(ctx context.Context, txn *types.Transaction) error {
	var fuelVolume *string
	if txn.FuelVolume != nil {
		v := txn.FuelVolume.String()
		fuelVolume = &v
	}

	_, err := s.exec(ctx, "insert-transaction",
		string(txn.ID),
		string(txn.Kind),
		txn.Timestamp.UTC().Format(time.RFC3339),
		txn.Amount.String(),
		txn.Currency,
		txn.MerchantName,
		txn.MerchantCategory,
		txn.Latitude,
		txn.Longitude,
		orNil(txn.VehicleID),
		orNil(txn.DriverID),
		orNil(txn.FuelType),
		fuelVolume,
		orNil(txn.FuelVolumeUnit),
		orNil(txn.MaintenanceType),
		txn.OdometerReading,
		txn.MLScore,
		orNil(txn.MLLabel),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

// ListTransactionsSince returns up to limit transactions at or after the
// given time, in deterministic (timestamp, id) order.
func (s *Store) ListTransactionsSince(ctx context.Context, since time.Time, limit int) ([]*types.Transaction, error) {
	var rows []transactionRow
	if err := s.selectAll(ctx, "list-transactions-since", &rows,
		since.UTC().Format(time.RFC3339), limit); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rowsToTransactions(rows)
}

// VehicleHistory returns a vehicle's transactions within [before-window,
// before), oldest first - the prior-transaction window frequency rules
// evaluate over.
func (s *Store) VehicleHistory(ctx context.Context, vehicleID string, before time.Time, window time.Duration) ([]*types.Transaction, error) {
	if vehicleID == "" {
		return nil, nil
	}
	var rows []transactionRow
	if err := s.selectAll(ctx, "list-vehicle-history", &rows,
		vehicleID,
		before.UTC().Format(time.RFC3339),
		before.Add(-window).UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to load vehicle history: %w", err)
	}
	return rowsToTransactions(rows)
}

func rowsToTransactions(rows []transactionRow) ([]*types.Transaction, error) {
	txns := make([]*types.Transaction, 0, len(rows))
	for _, row := range rows {
		txn, err := row.toTransaction()
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}
