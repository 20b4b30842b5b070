package notification

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/example/stock-alerts/internal/alert"
)

// DefaultSendTimeout bounds each per-recipient email.
const DefaultSendTimeout = 5 * time.Second

// Sender delivers one rendered alert to one address. Satisfied by
// email.Service.
type Sender interface {
	SendStockAlert(ctx context.Context, to string, record alert.Record) error
}

// Handler turns broadcast payloads consumed from Kafka into per-recipient
// emails. Used by the notifier service when outbound delivery runs
// decoupled from the API process.
type Handler struct {
	sender      Sender
	sendTimeout time.Duration
}

func NewHandler(sender Sender) *Handler {
	return &Handler{
		sender:      sender,
		sendTimeout: DefaultSendTimeout,
	}
}

// HandleMessage processes one consumed broadcast. Send failures are logged
// per recipient and never fail the message: Kafka redelivery would re-email
// the recipients that already succeeded.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var payload alert.Broadcast
	if err := json.Unmarshal(value, &payload); err != nil {
		log.Printf("[Notifier] Failed to unmarshal broadcast: %v", err)
		return err
	}

	if len(payload.Recipients) == 0 {
		return nil
	}

	log.Printf("[Notifier] Processing %s alert for inventory %s (%d recipients)",
		payload.Classification, payload.InventoryID, len(payload.Recipients))

	record := recordFromBroadcast(payload)
	for _, recipient := range payload.Recipients {
		if recipient.Email == "" {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
		err := h.sender.SendStockAlert(sendCtx, recipient.Email, record)
		cancel()
		if err != nil {
			log.Printf("[Notifier] Failed to send to %s: %v", recipient.Email, err)
			continue
		}
	}
	return nil
}

// recordFromBroadcast shapes the event-level payload like a record for the
// email template. The payload has no per-recipient id, so the broadcast id
// stands in.
func recordFromBroadcast(payload alert.Broadcast) alert.Record {
	return alert.Record{
		ID:              payload.ID,
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
}
