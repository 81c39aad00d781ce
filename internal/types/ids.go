package types

import (
	"time"

	"github.com/google/uuid"
)

// NewAnomalyID generates a UUIDv7 anomaly identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewAnomalyID() AnomalyID {
	return AnomalyID(uuid.Must(uuid.NewV7()).String())
}

// NewFeedbackEventID generates a UUIDv7 feedback event identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewFeedbackEventID() FeedbackEventID {
	return FeedbackEventID(uuid.Must(uuid.NewV7()).String())
}

// ParseAnomalyID validates and converts a string to AnomalyID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseAnomalyID(s string) (AnomalyID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return AnomalyID(s), nil
}

// AnomalyIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Enables time-based queries without database lookup.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func AnomalyIDTime(id AnomalyID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
