// internal/detect/template.go
package detect

import (
	"fmt"
	"strings"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Template rendering for reason, notification, and payload templates.
 *
 * Templates use {field} placeholders over a flat field map derived from the
 * triggering transaction, e.g. "amount {amount} exceeds 500". The grammar is
 * fixed by the rule configuration format: a single-level substitution with
 * no logic, conditionals, or escaping. A placeholder naming a missing field
 * fails with ErrTemplateRender; the caller drops that action and continues.
 */

// renderTemplate substitutes {field} placeholders from the field map.
func renderTemplate(template string, fields map[string]string) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q: %w", template, types.ErrTemplateRender)
		}
		name := rest[open+1 : open+closing]
		value, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("field %q in %q: %w", name, template, types.ErrTemplateRender)
		}
		b.WriteString(rest[:open])
		b.WriteString(value)
		rest = rest[open+closing+1:]
	}
}

// templateFields builds the substitution map for one transaction.
// Optional fields are present only when the transaction carries them, so a
// template referencing them fails loudly instead of rendering blanks.
func templateFields(txn *types.Transaction) map[string]string {
	fields := map[string]string{
		"transaction_id":    string(txn.ID),
		"kind":              string(txn.Kind),
		"timestamp":         txn.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		"amount":            txn.Amount.String(),
		"currency":          txn.Currency,
		"merchant_name":     txn.MerchantName,
		"merchant_category": txn.MerchantCategory,
	}
	if txn.VehicleID != "" {
		fields["vehicle_id"] = txn.VehicleID
	}
	if txn.DriverID != "" {
		fields["driver_id"] = txn.DriverID
	}
	if txn.FuelType != "" {
		fields["fuel_type"] = txn.FuelType
	}
	if txn.FuelVolume != nil {
		fields["fuel_volume"] = txn.FuelVolume.String()
	}
	if txn.MaintenanceType != "" {
		fields["maintenance_type"] = txn.MaintenanceType
	}
	if txn.OdometerReading != nil {
		fields["odometer_reading"] = fmt.Sprintf("%d", *txn.OdometerReading)
	}
	if txn.MLScore != nil {
		fields["ml_score"] = fmt.Sprintf("%g", *txn.MLScore)
	}
	if txn.MLLabel != "" {
		fields["ml_label"] = txn.MLLabel
	}
	return fields
}
