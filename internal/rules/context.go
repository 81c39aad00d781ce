// internal/rules/context.go
package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Evaluation context.
 *
 * The evaluator never fetches data itself: the caller supplies a Context
 * exposing named property lookups against one transaction plus whatever the
 * rules need beyond it (a prior-transaction window for frequency-style
 * conditions, a geometry collaborator for region tests).
 *
 * TransactionContext derives the normalized features used by time-of-day,
 * frequency, and fuel-metric rules (hour_of_day, is_business_hours,
 * window_count, price_per_unit, ...) from the raw transaction and history
 * window. Derivation is pure: identical inputs always resolve identically.
 */

// GeoPoint is a latitude/longitude pair resolved from the "location" property.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Geometry is the collaborator answering point-in-region tests.
// The evaluator treats it as a black-box boolean predicate.
type Geometry interface {
	Contains(region string, lat, lon float64) (bool, error)
}

// Context supplies property values for one transaction's evaluation.
type Context interface {
	// Resolve returns the value of a named property and whether it is
	// present. Value types follow PropertyKind: decimal.Decimal for numbers,
	// string for text, bool for flags, time.Duration for durations, and
	// GeoPoint for points.
	Resolve(property string) (any, bool)

	// Geometry returns the region-test collaborator, or nil when the caller
	// supplied none.
	Geometry() Geometry
}

// TransactionContext is the standard Context over one transaction and a
// caller-supplied window of that vehicle's prior transactions.
type TransactionContext struct {
	Txn     *types.Transaction
	History []*types.Transaction // prior window, most recent last
	Geo     Geometry
}

// Geometry implements Context.
func (c *TransactionContext) Geometry() Geometry {
	return c.Geo
}

// Business hours are 08:00-18:00 local to the transaction timestamp.
const (
	businessHoursStart = 8
	businessHoursEnd   = 18
)

// Resolve implements Context.
func (c *TransactionContext) Resolve(property string) (any, bool) {
	t := c.Txn
	switch property {
	case "transaction_id":
		return string(t.ID), true
	case "amount":
		return t.Amount, true
	case "currency":
		return t.Currency, true
	case "merchant_name":
		return t.MerchantName, true
	case "merchant_category":
		return t.MerchantCategory, true
	case "vehicle_id":
		return nonEmpty(t.VehicleID)
	case "driver_id":
		return nonEmpty(t.DriverID)
	case "hour_of_day":
		return decimal.NewFromInt(int64(t.Timestamp.Hour())), true
	case "day_of_week":
		// Monday = 0, matching upstream feature extraction.
		return decimal.NewFromInt(int64((int(t.Timestamp.Weekday()) + 6) % 7)), true
	case "is_weekend":
		wd := t.Timestamp.Weekday()
		return wd == time.Saturday || wd == time.Sunday, true
	case "is_business_hours":
		h := t.Timestamp.Hour()
		return h >= businessHoursStart && h < businessHoursEnd, true
	case "latitude":
		if t.Latitude == nil {
			return nil, false
		}
		return decimal.NewFromFloat(*t.Latitude), true
	case "longitude":
		if t.Longitude == nil {
			return nil, false
		}
		return decimal.NewFromFloat(*t.Longitude), true
	case "location":
		if !t.HasLocation() {
			return nil, false
		}
		return GeoPoint{Lat: *t.Latitude, Lon: *t.Longitude}, true
	case "ml_score":
		if t.MLScore == nil {
			return nil, false
		}
		return decimal.NewFromFloat(*t.MLScore), true
	case "ml_label":
		return nonEmpty(t.MLLabel)
	case "window_count":
		return decimal.NewFromInt(int64(len(c.History))), true
	case "days_since_last_transaction":
		d, ok := c.sinceLast()
		if !ok {
			return nil, false
		}
		return decimal.NewFromInt(int64(d.Hours() / 24)), true
	case "time_since_last_transaction":
		d, ok := c.sinceLast()
		if !ok {
			return nil, false
		}
		return d, true
	case "fuel_type":
		return nonEmpty(t.FuelType)
	case "fuel_volume":
		if t.FuelVolume == nil {
			return nil, false
		}
		return *t.FuelVolume, true
	case "fuel_volume_unit":
		return nonEmpty(t.FuelVolumeUnit)
	case "price_per_unit":
		if t.FuelVolume == nil || t.FuelVolume.IsZero() {
			return nil, false
		}
		return t.Amount.DivRound(*t.FuelVolume, 6), true
	case "maintenance_type":
		return nonEmpty(t.MaintenanceType)
	case "odometer_reading":
		if t.OdometerReading == nil {
			return nil, false
		}
		return decimal.NewFromInt(*t.OdometerReading), true
	default:
		return nil, false
	}
}

// sinceLast returns the elapsed time between this transaction and the most
// recent prior transaction in the window.
func (c *TransactionContext) sinceLast() (time.Duration, bool) {
	if len(c.History) == 0 {
		return 0, false
	}
	last := c.History[len(c.History)-1]
	return c.Txn.Timestamp.Sub(last.Timestamp), true
}

func nonEmpty(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}
