package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/stock-alerts/internal/alert"
)

func testRecord(id, recipientID string, createdAt time.Time) alert.Record {
	return alert.Record{
		ID:              id,
		Classification:  alert.ClassificationLowStock,
		InventoryID:     "inv-1",
		ProductID:       "prod-1",
		WarehouseID:     "wh-1",
		ProductName:     "Widget",
		WarehouseName:   "Central",
		CurrentQuantity: 5,
		Message:         "Low stock: Widget at Central is down to 5",
		RecipientID:     recipientID,
		CreatedAt:       createdAt,
	}
}

func TestMemoryAlertStore_ListNewestFirst(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, testRecord("a-1", "u1", base)))
	require.NoError(t, s.Append(ctx, testRecord("a-3", "u1", base.Add(2*time.Minute))))
	require.NoError(t, s.Append(ctx, testRecord("a-2", "u1", base.Add(time.Minute))))

	records, err := s.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a-3", records[0].ID)
	assert.Equal(t, "a-2", records[1].ID)
	assert.Equal(t, "a-1", records[2].ID)
}

func TestMemoryAlertStore_ListTiesBrokenByID(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, testRecord("a-1", "u1", at)))
	require.NoError(t, s.Append(ctx, testRecord("a-2", "u1", at)))

	records, err := s.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-2", records[0].ID)
	assert.Equal(t, "a-1", records[1].ID)
}

func TestMemoryAlertStore_ListAppliesDefaultCap(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < DefaultListLimit+20; i++ {
		record := testRecord(newSequentialID(i), "u1", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Append(ctx, record))
	}

	records, err := s.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, records, DefaultListLimit)

	records, err = s.List(ctx, "u1", DefaultListLimit+500)
	require.NoError(t, err)
	assert.Len(t, records, DefaultListLimit)

	records, err = s.List(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

// newSequentialID pads so lexicographic order matches numeric order.
func newSequentialID(i int) string {
	const digits = "0123456789"
	return "a-" + string([]byte{digits[i/100%10], digits[i/10%10], digits[i%10]})
}

func TestMemoryAlertStore_MarkReadIdempotent(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testRecord("a-1", "u1", time.Now())))

	updated, err := s.MarkRead(ctx, "u1", "a-1")
	require.NoError(t, err)
	assert.True(t, updated)

	records, err := s.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.NotNil(t, records[0].ReadAt)
	firstReadAt := *records[0].ReadAt

	// Second call is a no-op: false, no error, timestamp unchanged.
	updated, err = s.MarkRead(ctx, "u1", "a-1")
	require.NoError(t, err)
	assert.False(t, updated)

	records, err = s.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *records[0].ReadAt)
}

func TestMemoryAlertStore_MarkReadUnknownID(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()

	_, err := s.MarkRead(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAlertStore_OwnershipIsolation(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testRecord("a-1", "u1", time.Now())))
	require.NoError(t, s.Append(ctx, testRecord("b-1", "u2", time.Now())))

	// u2 cannot see u1's records.
	records, err := s.List(ctx, "u2", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b-1", records[0].ID)

	// u2 cannot mark u1's record; indistinguishable from missing.
	_, err = s.MarkRead(ctx, "u2", "a-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// u2's mark-all touches nothing of u1's.
	count, err := s.MarkAllRead(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err = s.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Nil(t, records[0].ReadAt)
}

func TestMemoryAlertStore_MarkAllRead(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testRecord("a-1", "u1", time.Now())))
	require.NoError(t, s.Append(ctx, testRecord("a-2", "u1", time.Now())))

	count, err := s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Idempotent: nothing left unread.
	count, err = s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryAlertStore_ClearScopedToRecipient(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testRecord("a-1", "u1", time.Now())))
	require.NoError(t, s.Append(ctx, testRecord("a-2", "u1", time.Now())))
	require.NoError(t, s.Append(ctx, testRecord("b-1", "u2", time.Now())))

	count, err := s.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := s.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = s.List(ctx, "u2", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
