package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRunID generates a UUIDv7 run identifier.
// Time-ordered IDs sort runs by start time in logs.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleSetID generates a UUIDv7 rule set identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleSetID() RuleSetID {
	return RuleSetID(uuid.Must(uuid.NewV7()).String())
}

// ParseRuleSetID validates and converts a string to RuleSetID.
func ParseRuleSetID(s string) (RuleSetID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RuleSetID(s), nil
}

// RunIDTime extracts the timestamp embedded in a UUIDv7 run ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RunIDTime(id RunID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
