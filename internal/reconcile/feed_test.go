package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/stock-alerts/internal/alert"
)

func storedRecord(id, inventoryID string, classification alert.Classification, createdAt time.Time) alert.Record {
	return alert.Record{
		ID:             id,
		Classification: classification,
		InventoryID:    inventoryID,
		RecipientID:    "u1",
		CreatedAt:      createdAt,
	}
}

func liveBroadcast(inventoryID string, classification alert.Classification, occurredAt time.Time) alert.Broadcast {
	return alert.Broadcast{
		ID:             "b-" + inventoryID,
		Classification: classification,
		InventoryID:    inventoryID,
		OccurredAt:     occurredAt,
	}
}

func TestFeed_LiveThenSeedCollapses(t *testing.T) {
	feed := NewFeed(0)
	now := time.Now()

	// Stream delivered the event before the list fetch returned.
	require.True(t, feed.ApplyLive(liveBroadcast("inv-1", alert.ClassificationLowStock, now)))
	require.Len(t, feed.Records(), 1)

	feed.Seed([]alert.Record{
		storedRecord("a-1", "inv-1", alert.ClassificationLowStock, now.Add(50*time.Millisecond)),
	})

	records := feed.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "a-1", records[0].ID, "stored record replaces the synthesized live entry")
}

func TestFeed_SeedThenLiveCollapses(t *testing.T) {
	feed := NewFeed(0)
	now := time.Now()

	feed.Seed([]alert.Record{
		storedRecord("a-1", "inv-1", alert.ClassificationLowStock, now),
	})

	assert.False(t, feed.ApplyLive(liveBroadcast("inv-1", alert.ClassificationLowStock, now.Add(time.Second))))
	assert.Len(t, feed.Records(), 1)
}

func TestFeed_DistinctPairsKept(t *testing.T) {
	feed := NewFeed(0)
	now := time.Now()

	feed.Seed([]alert.Record{
		storedRecord("a-1", "inv-1", alert.ClassificationLowStock, now),
	})

	// Different inventory item.
	assert.True(t, feed.ApplyLive(liveBroadcast("inv-2", alert.ClassificationLowStock, now)))
	// Same item, different classification.
	assert.True(t, feed.ApplyLive(liveBroadcast("inv-1", alert.ClassificationOverstock, now)))
	assert.Len(t, feed.Records(), 3)
}

func TestFeed_OutsideWindowNotDeduped(t *testing.T) {
	feed := NewFeed(10 * time.Second)
	now := time.Now()

	feed.Seed([]alert.Record{
		storedRecord("a-1", "inv-1", alert.ClassificationLowStock, now.Add(-time.Minute)),
	})

	// An hour-old record and a fresh event are two separate alerts.
	assert.True(t, feed.ApplyLive(liveBroadcast("inv-1", alert.ClassificationLowStock, now)))
	assert.Len(t, feed.Records(), 2)
}

func TestFeed_RecordsNewestFirst(t *testing.T) {
	feed := NewFeed(0)
	now := time.Now()

	feed.Seed([]alert.Record{
		storedRecord("a-1", "inv-1", alert.ClassificationLowStock, now.Add(-2*time.Hour)),
		storedRecord("a-2", "inv-2", alert.ClassificationOverstock, now.Add(-time.Hour)),
	})
	require.True(t, feed.ApplyLive(liveBroadcast("inv-3", alert.ClassificationLowStock, now)))

	records := feed.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "inv-3", records[0].InventoryID)
	assert.Equal(t, "a-2", records[1].ID)
	assert.Equal(t, "a-1", records[2].ID)
}
