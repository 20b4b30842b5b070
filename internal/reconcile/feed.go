package reconcile

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/stock-alerts/internal/alert"
)

// DefaultDedupWindow is how close together a live event and a stored record
// must be to count as the same alert.
const DefaultDedupWindow = 10 * time.Second

// Feed merges the durable alert list with live broadcast events into one
// consistent view. A client seeds the feed from GET /alerts, then applies
// events from the stream; alerts arriving on both paths collapse into one
// entry.
type Feed struct {
	mu      sync.Mutex
	window  time.Duration
	durable []alert.Record
	live    []alert.Record
}

// NewFeed builds a feed with the given dedup window. A non-positive window
// falls back to DefaultDedupWindow.
func NewFeed(window time.Duration) *Feed {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Feed{window: window}
}

// Seed replaces the durable set with records fetched from the store. Live
// entries that the fetched records now cover are dropped; live entries the
// fetch raced past are kept.
func (f *Feed) Seed(records []alert.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.durable = append([]alert.Record(nil), records...)

	kept := f.live[:0]
	for _, entry := range f.live {
		if !f.coveredLocked(f.durable, entry) {
			kept = append(kept, entry)
		}
	}
	f.live = kept
}

// ApplyLive folds one broadcast event into the feed. The synthesized entry
// carries a local id until the next Seed replaces it with the stored record.
// Returns false when the event duplicates an entry already present.
func (f *Feed) ApplyLive(payload alert.Broadcast) bool {
	entry := alert.Record{
		ID:              "live-" + uuid.New().String(),
		Classification:  payload.Classification,
		InventoryID:     payload.InventoryID,
		ProductID:       payload.ProductID,
		WarehouseID:     payload.WarehouseID,
		ProductName:     payload.ProductName,
		WarehouseName:   payload.WarehouseName,
		CurrentQuantity: payload.CurrentQuantity,
		MinStock:        payload.MinStock,
		MaxStock:        payload.MaxStock,
		Message:         payload.Message,
		CreatedAt:       payload.OccurredAt,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.coveredLocked(f.durable, entry) || f.coveredLocked(f.live, entry) {
		return false
	}
	f.live = append(f.live, entry)
	return true
}

// Records returns the merged view, newest first.
func (f *Feed) Records() []alert.Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	merged := make([]alert.Record, 0, len(f.durable)+len(f.live))
	merged = append(merged, f.durable...)
	merged = append(merged, f.live...)

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID > merged[j].ID
	})
	return merged
}

// coveredLocked reports whether existing already holds an entry for the same
// inventory item and classification within the dedup window.
func (f *Feed) coveredLocked(existing []alert.Record, entry alert.Record) bool {
	for _, other := range existing {
		if other.InventoryID != entry.InventoryID || other.Classification != entry.Classification {
			continue
		}
		gap := entry.CreatedAt.Sub(other.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= f.window {
			return true
		}
	}
	return false
}
