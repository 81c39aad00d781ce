package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fleetsight/watchtower/internal/core/config"
	"github.com/fleetsight/watchtower/internal/types"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import transactions from a JSON-lines file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// transactionFile is the ingest line format. Amounts and fuel volumes are
// decimal strings or JSON numbers; timestamps are RFC3339.
type transactionFile struct {
	TransactionID    string           `json:"transaction_id"`
	Kind             string           `json:"kind"`
	Timestamp        time.Time        `json:"timestamp"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	MerchantName     string           `json:"merchant_name"`
	MerchantCategory string           `json:"merchant_category"`
	Latitude         *float64         `json:"latitude,omitempty"`
	Longitude        *float64         `json:"longitude,omitempty"`
	VehicleID        string           `json:"vehicle_id,omitempty"`
	DriverID         string           `json:"driver_id,omitempty"`
	FuelType         string           `json:"fuel_type,omitempty"`
	FuelVolume       *decimal.Decimal `json:"fuel_volume,omitempty"`
	FuelVolumeUnit   string           `json:"fuel_volume_unit,omitempty"`
	MaintenanceType  string           `json:"maintenance_type,omitempty"`
	OdometerReading  *int64           `json:"odometer_reading,omitempty"`
	MLScore          *float64         `json:"ml_score,omitempty"`
	MLLabel          string           `json:"ml_label,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.DB().Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	imported := 0
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc transactionFile
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		txn := &types.Transaction{
			ID:               types.TransactionID(doc.TransactionID),
			Kind:             types.TransactionKind(doc.Kind),
			Timestamp:        doc.Timestamp,
			Amount:           doc.Amount,
			Currency:         doc.Currency,
			MerchantName:     doc.MerchantName,
			MerchantCategory: doc.MerchantCategory,
			Latitude:         doc.Latitude,
			Longitude:        doc.Longitude,
			VehicleID:        doc.VehicleID,
			DriverID:         doc.DriverID,
			FuelType:         doc.FuelType,
			FuelVolume:       doc.FuelVolume,
			FuelVolumeUnit:   doc.FuelVolumeUnit,
			MaintenanceType:  doc.MaintenanceType,
			OdometerReading:  doc.OdometerReading,
			MLScore:          doc.MLScore,
			MLLabel:          doc.MLLabel,
		}
		if err := st.InsertTransaction(ctx, txn); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	fmt.Printf("imported %d transactions\n", imported)
	return nil
}
