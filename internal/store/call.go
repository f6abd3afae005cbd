// Package store persists analyzed calls.
package store

import (
	"context"
	"errors"
	"time"
)

// DefaultRecentLimit is the number of calls returned by Recent when the
// caller passes a non-positive limit.
const DefaultRecentLimit = 20

// ErrDuplicateCall is returned when a call ID is inserted twice.
var ErrDuplicateCall = errors.New("store: call already exists")

// Call is one analyzed call as stored.
type Call struct {
	ID                int64
	CallID            string
	Transcript        string
	ConfidenceScore   float64
	EmergencyDetected bool
	AudioFileName     string
	DurationSeconds   float64
	CompressionRatio  float64
	CreatedAt         time.Time
}

// CallStore records analyzed calls and lists the newest ones.
type CallStore interface {
	// Insert stores c and fills in its ID and CreatedAt.
	Insert(ctx context.Context, c *Call) error

	// Recent returns up to limit calls, newest first.
	Recent(ctx context.Context, limit int) ([]Call, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
