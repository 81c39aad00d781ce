// Package types provides domain models shared across watchtower components.
//
// Zero-behavior design: this package holds the entities that cross component
// boundaries (transactions in, anomaly drafts and effect requests out) plus
// sentinel errors and ID utilities. Evaluation and workflow logic live in
// internal/rules, internal/detect, and internal/review.
//
// Transactions are produced upstream and consumed read-only; nothing in this
// module mutates a Transaction after it is handed to the detector.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionID identifies a fleet transaction. Assigned upstream; opaque here.
type TransactionID string

// RuleID identifies a detection rule.
// String alias enables type safety while maintaining JSON string serialization.
type RuleID string

// AnomalyID represents a UUIDv7 anomaly identifier.
type AnomalyID string

// FeedbackEventID represents a UUIDv7 feedback event identifier.
type FeedbackEventID string

// TransactionKind classifies a transaction for rule applicability filtering.
type TransactionKind string

const (
	KindGeneric     TransactionKind = "generic"
	KindFuel        TransactionKind = "fuel"
	KindMaintenance TransactionKind = "maintenance"
)

// Transaction is a recorded financial or operational fleet event.
//
// Amounts and volumes are fixed-point decimals; monetary comparisons must
// never round through float64. Fuel and maintenance fields are populated
// only for the corresponding kinds.
type Transaction struct {
	ID               TransactionID
	Kind             TransactionKind
	Timestamp        time.Time
	Amount           decimal.Decimal
	Currency         string // ISO 4217
	MerchantName     string
	MerchantCategory string

	// Optional geo coordinates. Set together or not at all.
	Latitude  *float64
	Longitude *float64

	VehicleID string
	DriverID  string

	// Fuel-specific fields (Kind == KindFuel).
	FuelType       string
	FuelVolume     *decimal.Decimal
	FuelVolumeUnit string

	// Maintenance-specific fields (Kind == KindMaintenance).
	MaintenanceType string

	// Odometer reading at transaction time, when reported by the card network.
	OdometerReading *int64

	// Output of the external inference collaborator, when available.
	// Consumed as an input signal only; no model execution happens here.
	MLScore *float64
	MLLabel string
}

// HasLocation reports whether both coordinates are present.
func (t *Transaction) HasLocation() bool {
	return t.Latitude != nil && t.Longitude != nil
}

// AnomalyType tags the category of a detected anomaly.
type AnomalyType string

const (
	AnomalyHighSpend  AnomalyType = "HighSpend"
	AnomalyLocation   AnomalyType = "Location"
	AnomalyFrequency  AnomalyType = "Frequency"
	AnomalyTimeOfDay  AnomalyType = "TimeOfDay"
	AnomalyFuelMetric AnomalyType = "FuelMetric"
)

// FeedbackStatus is the review workflow state variable of an Anomaly.
type FeedbackStatus string

const (
	StatusPendingReview          FeedbackStatus = "PendingReview"
	StatusOkay                   FeedbackStatus = "Okay"
	StatusInvestigate            FeedbackStatus = "Investigate"
	StatusConfirmedFraudOrMisuse FeedbackStatus = "ConfirmedFraudOrMisuse"
	StatusMiscategorized         FeedbackStatus = "Miscategorized"
)

// ValidFeedbackStatus reports whether s is one of the five workflow states.
func ValidFeedbackStatus(s FeedbackStatus) bool {
	switch s {
	case StatusPendingReview, StatusOkay, StatusInvestigate,
		StatusConfirmedFraudOrMisuse, StatusMiscategorized:
		return true
	}
	return false
}

// AnomalyDraft is the detector's output for one (transaction, rule) match.
// Persistence into an Anomaly record is the sink's responsibility; the
// (TransactionID, RuleID) pair is the idempotency key for upsert.
type AnomalyDraft struct {
	TransactionID TransactionID
	RuleID        RuleID
	Type          AnomalyType
	Reason        string
	Score         *float64
	Status        FeedbackStatus // always StatusPendingReview at creation
	DetectedAt    time.Time
}

// Anomaly is a persisted record flagging one transaction as matching one rule.
// Created once by the detector, mutated only through the review workflow,
// never deleted by this core.
type Anomaly struct {
	ID            AnomalyID      `db:"anomaly_id"`
	TransactionID TransactionID  `db:"transaction_id"`
	RuleID        RuleID         `db:"rule_id"`
	Type          AnomalyType    `db:"anomaly_type"`
	Reason        string         `db:"reason"`
	Score         *float64       `db:"score"`
	Status        FeedbackStatus `db:"status"`
	DetectedAt    time.Time      `db:"detected_at"`
}

// FeedbackEvent is one append-only log entry of a review-status transition.
// Events are never edited or deleted. An amendment to a closed anomaly is a
// new event with OldStatus == NewStatus, not a status change.
type FeedbackEvent struct {
	ID            FeedbackEventID `db:"event_id"`
	AnomalyID     AnomalyID       `db:"anomaly_id"`
	ReviewerID    string          `db:"reviewer_id"`
	OldStatus     FeedbackStatus  `db:"old_status"`
	NewStatus     FeedbackStatus  `db:"new_status"`
	Timestamp     time.Time       `db:"created_at"`
	Notes         string          `db:"notes"`
	CorrectedCode string          `db:"corrected_code"`
}
