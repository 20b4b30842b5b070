package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/stock-alerts/internal/alert"
	"github.com/example/stock-alerts/internal/metrics"
	"github.com/example/stock-alerts/internal/recipient"
	"github.com/example/stock-alerts/internal/store"
)

// DefaultSendTimeout bounds each per-recipient outbound send. A hung send
// times out on its own without holding up other recipients or channels.
const DefaultSendTimeout = 5 * time.Second

// Broadcaster delivers an event-level payload to a live topic.
// Fire-and-forget: no delivery guarantee, and implementations must not
// block the dispatch pipeline when the transport is saturated.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Sender delivers the rendered alert to one recipient out-of-band, e.g.
// over SMTP. Failures are non-fatal to the dispatch.
type Sender interface {
	SendStockAlert(ctx context.Context, to string, record alert.Record) error
}

// Result reports per-channel outcomes for one dispatched transition.
// Channels are independent: an error in one never prevents the others from
// being attempted.
type Result struct {
	ResolveErr      error
	Recipients      int
	Stored          int
	StoreErrors     map[string]error // recipient id -> append failure
	BroadcastErrors []error
	OutboundErrors  map[string]error // recipient id -> send failure
}

// Dispatcher turns one detected transition into persisted records plus live
// and outbound delivery attempts. At-least-once per channel; durability
// comes only from the store leg.
type Dispatcher struct {
	resolver     recipient.Resolver
	alerts       store.AlertStore
	broadcasters []Broadcaster
	sender       Sender // optional; nil when a separate notifier process emails
	registry     *metrics.Registry

	sendTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

func NewDispatcher(resolver recipient.Resolver, alerts store.AlertStore, broadcasters []Broadcaster, sender Sender, registry *metrics.Registry) *Dispatcher {
	return &Dispatcher{
		resolver:     resolver,
		alerts:       alerts,
		broadcasters: broadcasters,
		sender:       sender,
		registry:     registry,
		sendTimeout:  DefaultSendTimeout,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// Dispatch fans one transition out to all channels.
//
// Resolution failures abort the whole dispatch before anything is persisted:
// alerting half the recipients is worse than alerting none and retrying.
// Every failure after resolution is isolated to its own channel or
// recipient.
func (d *Dispatcher) Dispatch(ctx context.Context, event alert.TransitionEvent, display alert.Display) Result {
	d.registry.Dispatches.Inc()

	result := Result{
		StoreErrors:    make(map[string]error),
		OutboundErrors: make(map[string]error),
	}

	recipients, err := d.resolver.Resolve(ctx, event)
	if err != nil {
		d.registry.ResolveFailures.Inc()
		log.Printf("[Dispatch] Recipient resolution failed for inventory %s: %v", event.InventoryID, err)
		result.ResolveErr = err
		return result
	}
	result.Recipients = len(recipients)

	message := alert.RenderMessage(event.NewClassification, display, event.NewQuantity, event.MinStock, event.MaxStock)
	createdAt := d.now()

	records := make([]alert.Record, 0, len(recipients))
	for _, rec := range recipients {
		records = append(records, alert.Record{
			ID:              d.newID(),
			Classification:  event.NewClassification,
			InventoryID:     event.InventoryID,
			ProductID:       event.ProductID,
			WarehouseID:     event.WarehouseID,
			ProductName:     display.ProductName,
			WarehouseName:   display.WarehouseName,
			CurrentQuantity: event.NewQuantity,
			MinStock:        event.MinStock,
			MaxStock:        event.MaxStock,
			Message:         message,
			RecipientID:     rec.ID,
			CreatedAt:       createdAt,
		})
	}

	d.persist(ctx, records, &result)
	d.broadcast(ctx, event, display, message, recipients, &result)
	d.sendOutbound(ctx, recipients, records, &result)

	return result
}

// persist appends every record; appends for different recipients run in
// parallel and a failure for one never rolls back the others.
func (d *Dispatcher) persist(ctx context.Context, records []alert.Record, result *Result) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, record := range records {
		wg.Add(1)
		go func(record alert.Record) {
			defer wg.Done()
			if err := d.alerts.Append(ctx, record); err != nil {
				d.registry.StoreFailures.Inc()
				log.Printf("[Dispatch] Failed to persist alert for recipient %s: %v", record.RecipientID, err)
				mu.Lock()
				result.StoreErrors[record.RecipientID] = err
				mu.Unlock()
				return
			}
			d.registry.RecordsAppended.Inc()
			mu.Lock()
			result.Stored++
			mu.Unlock()
		}(record)
	}
	wg.Wait()
}

// broadcast publishes one event-level payload to the general topic and the
// warehouse-scoped topic on every configured broadcaster.
func (d *Dispatcher) broadcast(ctx context.Context, event alert.TransitionEvent, display alert.Display, message string, recipients []recipient.Recipient, result *Result) {
	refs := make([]alert.RecipientRef, 0, len(recipients))
	for _, rec := range recipients {
		refs = append(refs, alert.RecipientRef{ID: rec.ID, Email: rec.Email})
	}

	payload := alert.Broadcast{
		ID:              d.newID(),
		Classification:  event.NewClassification,
		InventoryID:     event.InventoryID,
		ProductID:       event.ProductID,
		WarehouseID:     event.WarehouseID,
		ProductName:     display.ProductName,
		WarehouseName:   display.WarehouseName,
		OldQuantity:     event.OldQuantity,
		NewQuantity:     event.NewQuantity,
		CurrentQuantity: event.NewQuantity,
		MinStock:        event.MinStock,
		MaxStock:        event.MaxStock,
		Message:         message,
		Recipients:      refs,
		OccurredAt:      event.OccurredAt,
	}

	topics := []string{alert.TopicAlerts, alert.WarehouseTopic(event.WarehouseID)}
	for _, broadcaster := range d.broadcasters {
		for _, topic := range topics {
			if err := broadcaster.Publish(ctx, topic, payload); err != nil {
				d.registry.BroadcastFailures.Inc()
				log.Printf("[Dispatch] Broadcast to %q failed: %v", topic, err)
				result.BroadcastErrors = append(result.BroadcastErrors, err)
			}
		}
	}
}

// sendOutbound emails each recipient best-effort. Sends run in parallel,
// each under its own timeout, so one hung recipient cannot delay the rest.
func (d *Dispatcher) sendOutbound(ctx context.Context, recipients []recipient.Recipient, records []alert.Record, result *Result) {
	if d.sender == nil {
		return
	}

	recordByRecipient := make(map[string]alert.Record, len(records))
	for _, record := range records {
		recordByRecipient[record.RecipientID] = record
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, rec := range recipients {
		if rec.Email == "" {
			continue
		}
		record, ok := recordByRecipient[rec.ID]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(rec recipient.Recipient, record alert.Record) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()

			started := d.now()
			err := d.sender.SendStockAlert(sendCtx, rec.Email, record)
			d.registry.OutboundLatency.Observe(time.Since(started).Seconds())
			if err != nil {
				d.registry.OutboundFailures.Inc()
				log.Printf("[Dispatch] Outbound send to %s failed: %v", rec.Email, err)
				mu.Lock()
				result.OutboundErrors[rec.ID] = err
				mu.Unlock()
			}
		}(rec, record)
	}
	wg.Wait()
}
