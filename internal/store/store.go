package store

import (
	"context"
	"errors"

	"github.com/example/stock-alerts/internal/alert"
)

// DefaultListLimit bounds List responses when the caller does not ask for
// less. A safety bound, not a product requirement.
const DefaultListLimit = 100

var (
	// ErrNotFound is returned when an alert does not exist for the given
	// recipient. Records owned by other recipients are indistinguishable
	// from missing ones so ids never leak across recipients.
	ErrNotFound = errors.New("alert not found")
)

// AlertStore is the durable, per-recipient alert log. Every operation is
// scoped to one recipient; no implementation may expose or mutate another
// recipient's records.
type AlertStore interface {
	// Append persists one record. Records for different recipients are
	// independent; a failure for one must not affect others.
	Append(ctx context.Context, record alert.Record) error

	// List returns the recipient's records newest first, ordered by
	// created_at descending with id descending as tiebreak. limit <= 0 or
	// above DefaultListLimit falls back to DefaultListLimit.
	List(ctx context.Context, recipientID string, limit int) ([]alert.Record, error)

	// MarkRead sets read_at if it is currently unset. Returns (false, nil)
	// when the record is already read, and ErrNotFound when no record with
	// that id is owned by the recipient. Safe to call repeatedly.
	MarkRead(ctx context.Context, recipientID, alertID string) (bool, error)

	// MarkAllRead marks every unread record for the recipient and returns
	// how many were affected. Idempotent: zero when nothing was unread.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)

	// Clear permanently deletes all of the recipient's records and returns
	// how many were deleted.
	Clear(ctx context.Context, recipientID string) (int, error)
}

// NormalizeLimit applies the default cap to a caller-supplied limit.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
