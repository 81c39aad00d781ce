// internal/rules/properties.go
package rules

import "github.com/fleetsight/watchtower/internal/types"

/*
 * Recognized property references per entity kind.
 *
 * Conditions refer to properties by name. The set of recognized names and
 * their value types is a compile-time enumeration: unknown references are
 * rejected when the rule is loaded, never at evaluation time. Derived
 * properties (hour_of_day, window_count, price_per_unit, ...) are computed
 * by the evaluation context from the transaction and its history window.
 */

// PropKind is the value type a property resolves to.
type PropKind int

const (
	PropNumber PropKind = iota
	PropText
	PropFlag
	PropDuration
	PropPoint
)

// commonProperties are recognized for every transaction kind.
var commonProperties = map[string]PropKind{
	"transaction_id":              PropText,
	"amount":                      PropNumber,
	"currency":                    PropText,
	"merchant_name":               PropText,
	"merchant_category":           PropText,
	"vehicle_id":                  PropText,
	"driver_id":                   PropText,
	"hour_of_day":                 PropNumber,
	"day_of_week":                 PropNumber,
	"is_weekend":                  PropFlag,
	"is_business_hours":           PropFlag,
	"latitude":                    PropNumber,
	"longitude":                   PropNumber,
	"location":                    PropPoint,
	"ml_score":                    PropNumber,
	"ml_label":                    PropText,
	"window_count":                PropNumber,
	"days_since_last_transaction": PropNumber,
	"time_since_last_transaction": PropDuration,
}

// fuelProperties extend the common set for fuel transactions.
var fuelProperties = map[string]PropKind{
	"fuel_type":        PropText,
	"fuel_volume":      PropNumber,
	"fuel_volume_unit": PropText,
	"price_per_unit":   PropNumber,
	"odometer_reading": PropNumber,
}

// maintenanceProperties extend the common set for maintenance transactions.
var maintenanceProperties = map[string]PropKind{
	"maintenance_type": PropText,
	"odometer_reading": PropNumber,
}

// PropertyKind resolves a property name for an entity kind.
// Returns false for names not recognized for that kind.
func PropertyKind(entity types.TransactionKind, name string) (PropKind, bool) {
	if k, ok := commonProperties[name]; ok {
		return k, true
	}
	switch entity {
	case types.KindFuel:
		k, ok := fuelProperties[name]
		return k, ok
	case types.KindMaintenance:
		k, ok := maintenanceProperties[name]
		return k, ok
	}
	return 0, false
}

// ValidEntityKind reports whether kind is a supported applicable-entity-type.
func ValidEntityKind(kind types.TransactionKind) bool {
	switch kind {
	case types.KindGeneric, types.KindFuel, types.KindMaintenance:
		return true
	}
	return false
}
