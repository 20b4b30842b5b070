package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/stock-alerts/internal/alert"
	"github.com/example/stock-alerts/internal/metrics"
	"github.com/example/stock-alerts/internal/recipient"
	"github.com/example/stock-alerts/internal/store"
)

type failingResolver struct {
	err error
}

func (r *failingResolver) Resolve(ctx context.Context, event alert.TransitionEvent) ([]recipient.Recipient, error) {
	return nil, r.err
}

// failingStore wraps a MemoryAlertStore and fails appends for chosen
// recipients.
type failingStore struct {
	*store.MemoryAlertStore
	mu      sync.Mutex
	failFor map[string]error
}

func newFailingStore() *failingStore {
	return &failingStore{
		MemoryAlertStore: store.NewMemoryAlertStore(),
		failFor:          make(map[string]error),
	}
}

func (s *failingStore) Append(ctx context.Context, record alert.Record) error {
	s.mu.Lock()
	err := s.failFor[record.RecipientID]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryAlertStore.Append(ctx, record)
}

// recordingBroadcaster tracks publishes and optionally fails them.
type recordingBroadcaster struct {
	mu       sync.Mutex
	Publishes []publishCall
	err      error
}

type publishCall struct {
	Topic   string
	Payload any
}

func (b *recordingBroadcaster) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Publishes = append(b.Publishes, publishCall{Topic: topic, Payload: payload})
	return b.err
}

// recordingSender tracks outbound sends and optionally fails or hangs.
type recordingSender struct {
	mu    sync.Mutex
	Sends []sendCall
	err   error
	hang  bool
}

type sendCall struct {
	To     string
	Record alert.Record
}

func (s *recordingSender) SendStockAlert(ctx context.Context, to string, record alert.Record) error {
	if s.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sends = append(s.Sends, sendCall{To: to, Record: record})
	return s.err
}

func intPtr(v int) *int { return &v }

func testEvent() alert.TransitionEvent {
	return alert.TransitionEvent{
		InventoryID:       "inv-1",
		ProductID:         "prod-1",
		WarehouseID:       "wh-1",
		OldQuantity:       50,
		NewQuantity:       5,
		MinStock:          intPtr(10),
		MaxStock:          intPtr(100),
		OldClassification: alert.ClassificationNormal,
		NewClassification: alert.ClassificationLowStock,
		OccurredAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testDisplay() alert.Display {
	return alert.Display{ProductName: "Widget", WarehouseName: "Central"}
}

func twoRecipients() *recipient.StaticResolver {
	return &recipient.StaticResolver{Recipients: []recipient.Recipient{
		{ID: "u1", Email: "u1@example.com"},
		{ID: "u2", Email: "u2@example.com"},
	}}
}

func TestDispatch_FanOutCreatesOneRecordPerRecipient(t *testing.T) {
	alerts := store.NewMemoryAlertStore()
	broadcaster := &recordingBroadcaster{}
	d := NewDispatcher(twoRecipients(), alerts, []Broadcaster{broadcaster}, nil, metrics.NewRegistry())

	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 2, result.Stored)
	assert.Empty(t, result.StoreErrors)

	u1Records, err := alerts.List(context.Background(), "u1", 10)
	require.NoError(t, err)
	u2Records, err := alerts.List(context.Background(), "u2", 10)
	require.NoError(t, err)
	require.Len(t, u1Records, 1)
	require.Len(t, u2Records, 1)

	// Distinct ids, shared transition fields, unread.
	assert.NotEqual(t, u1Records[0].ID, u2Records[0].ID)
	for _, record := range []alert.Record{u1Records[0], u2Records[0]} {
		assert.Equal(t, "inv-1", record.InventoryID)
		assert.Equal(t, alert.ClassificationLowStock, record.Classification)
		assert.Equal(t, 5, record.CurrentQuantity)
		assert.Equal(t, 10, *record.MinStock)
		assert.Equal(t, "Widget", record.ProductName)
		assert.Nil(t, record.ReadAt)
	}
}

func TestDispatch_PublishesGeneralAndWarehouseTopics(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	d := NewDispatcher(twoRecipients(), store.NewMemoryAlertStore(), []Broadcaster{broadcaster}, nil, metrics.NewRegistry())

	d.Dispatch(context.Background(), testEvent(), testDisplay())

	require.Len(t, broadcaster.Publishes, 2)
	assert.Equal(t, alert.TopicAlerts, broadcaster.Publishes[0].Topic)
	assert.Equal(t, "alerts.warehouse.wh-1", broadcaster.Publishes[1].Topic)

	// One event-level payload, not per-recipient, carrying both quantities.
	payload, ok := broadcaster.Publishes[0].Payload.(alert.Broadcast)
	require.True(t, ok)
	assert.Equal(t, 50, payload.OldQuantity)
	assert.Equal(t, 5, payload.NewQuantity)
	assert.Len(t, payload.Recipients, 2)
	assert.Equal(t, payload, broadcaster.Publishes[1].Payload)
}

func TestDispatch_ResolverFailureAbortsBeforePersisting(t *testing.T) {
	alerts := store.NewMemoryAlertStore()
	broadcaster := &recordingBroadcaster{}
	sender := &recordingSender{}
	resolver := &failingResolver{err: errors.New("resolver down")}
	d := NewDispatcher(resolver, alerts, []Broadcaster{broadcaster}, sender, metrics.NewRegistry())

	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	require.Error(t, result.ResolveErr)
	assert.Zero(t, result.Stored)
	assert.Empty(t, broadcaster.Publishes)
	assert.Empty(t, sender.Sends)

	records, err := alerts.List(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDispatch_StoreFailureForOneRecipientDoesNotStopOthers(t *testing.T) {
	alerts := newFailingStore()
	alerts.failFor["u1"] = errors.New("disk full")
	broadcaster := &recordingBroadcaster{}
	sender := &recordingSender{}
	d := NewDispatcher(twoRecipients(), alerts, []Broadcaster{broadcaster}, sender, metrics.NewRegistry())

	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	assert.Equal(t, 1, result.Stored)
	require.Contains(t, result.StoreErrors, "u1")

	// u2's record landed.
	records, err := alerts.List(context.Background(), "u2", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Broadcast and outbound still ran for every resolved recipient.
	assert.Len(t, broadcaster.Publishes, 2)
	assert.Len(t, sender.Sends, 2)
}

func TestDispatch_BroadcastFailureIsNonFatal(t *testing.T) {
	alerts := store.NewMemoryAlertStore()
	broadcaster := &recordingBroadcaster{err: errors.New("kafka unreachable")}
	sender := &recordingSender{}
	d := NewDispatcher(twoRecipients(), alerts, []Broadcaster{broadcaster}, sender, metrics.NewRegistry())

	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	assert.Len(t, result.BroadcastErrors, 2)
	assert.Equal(t, 2, result.Stored)
	assert.Len(t, sender.Sends, 2)
}

func TestDispatch_OutboundFailureIsNonFatal(t *testing.T) {
	alerts := store.NewMemoryAlertStore()
	sender := &recordingSender{err: errors.New("smtp refused")}
	d := NewDispatcher(twoRecipients(), alerts, nil, sender, metrics.NewRegistry())

	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	assert.Len(t, result.OutboundErrors, 2)
	assert.Equal(t, 2, result.Stored)
}

func TestDispatch_HungSendIsTimeBounded(t *testing.T) {
	alerts := store.NewMemoryAlertStore()
	sender := &recordingSender{hang: true}
	d := NewDispatcher(twoRecipients(), alerts, nil, sender, metrics.NewRegistry())
	d.sendTimeout = 50 * time.Millisecond

	start := time.Now()
	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, result.OutboundErrors, 2)
	assert.Equal(t, 2, result.Stored)
}

func TestDispatch_EmptyRecipientSetStillBroadcasts(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	resolver := &recipient.StaticResolver{}
	d := NewDispatcher(resolver, store.NewMemoryAlertStore(), []Broadcaster{broadcaster}, nil, metrics.NewRegistry())

	result := d.Dispatch(context.Background(), testEvent(), testDisplay())

	assert.Zero(t, result.Recipients)
	assert.Zero(t, result.Stored)
	assert.Len(t, broadcaster.Publishes, 2)
}
