package inventory

import (
	"context"
	"log"
	"time"

	"github.com/example/stock-alerts/internal/alert"
	"github.com/example/stock-alerts/internal/dispatch"
)

// DefaultDispatchTimeout bounds the asynchronous fan-out triggered by one
// stock change.
const DefaultDispatchTimeout = 30 * time.Second

// Dispatcher fans a detected transition out to the alert channels.
// Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, event alert.TransitionEvent, display alert.Display) dispatch.Result
}

// Service is the write-path entry point: callers report each committed stock
// change here and the service decides whether it warrants alerting.
type Service struct {
	dispatcher Dispatcher

	dispatchTimeout time.Duration
	now             func() time.Time
}

func NewService(dispatcher Dispatcher) *Service {
	return &Service{
		dispatcher:      dispatcher,
		dispatchTimeout: DefaultDispatchTimeout,
		now:             time.Now,
	}
}

// RecordChange evaluates one committed quantity change. Detection runs
// synchronously so the caller learns whether the change alerts; the fan-out
// itself runs in the background so a slow store or SMTP server never delays
// the inventory write path. Returns true when the change triggered an alert.
func (s *Service) RecordChange(ctx context.Context, snap alert.Snapshot, previousQuantity int, display alert.Display) bool {
	event, ok := alert.Detect(snap, previousQuantity, s.now())
	if !ok {
		return false
	}

	log.Printf("[Inventory] %s transition on inventory %s: %d -> %d",
		event.NewClassification, event.InventoryID, event.OldQuantity, event.NewQuantity)

	// Detached from the request context: the alert outlives the HTTP
	// request that reported the change.
	go func() {
		dispatchCtx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		result := s.dispatcher.Dispatch(dispatchCtx, event, display)
		if result.ResolveErr != nil {
			return
		}
		log.Printf("[Inventory] Dispatched %s alert for inventory %s: %d/%d stored, %d broadcast errors, %d outbound errors",
			event.NewClassification, event.InventoryID,
			result.Stored, result.Recipients,
			len(result.BroadcastErrors), len(result.OutboundErrors))
	}()
	return true
}
