package alert

import (
	"fmt"
	"time"
)

// Display carries the denormalized names captured when the alert is created,
// so alert text stays meaningful even if the product or warehouse is later
// renamed or deleted.
type Display struct {
	ProductName   string `json:"product_name"`
	WarehouseName string `json:"warehouse_name"`
}

// Record is the canonical per-recipient alert. It is created exactly once
// per (recipient, transition) and never edited afterwards except for the
// read-state transition on ReadAt.
type Record struct {
	ID              string         `json:"id"`
	Classification  Classification `json:"classification"`
	InventoryID     string         `json:"inventory_id"`
	ProductID       string         `json:"product_id"`
	WarehouseID     string         `json:"warehouse_id"`
	ProductName     string         `json:"product_name"`
	WarehouseName   string         `json:"warehouse_name"`
	CurrentQuantity int            `json:"current_quantity"`
	MinStock        *int           `json:"min_stock,omitempty"`
	MaxStock        *int           `json:"max_stock,omitempty"`
	Message         string         `json:"message"`
	RecipientID     string         `json:"recipient_id"`
	CreatedAt       time.Time      `json:"created_at"`
	ReadAt          *time.Time     `json:"read_at,omitempty"`
}

// RecipientRef identifies one resolved recipient inside a broadcast payload.
// Clients ignore it; the notifier service uses it to email without
// re-resolving.
type RecipientRef struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Broadcast is the event-level payload published to the live topics. One is
// published per transition regardless of how many records were persisted.
type Broadcast struct {
	ID              string         `json:"id"`
	Classification  Classification `json:"classification"`
	InventoryID     string         `json:"inventory_id"`
	ProductID       string         `json:"product_id"`
	WarehouseID     string         `json:"warehouse_id"`
	ProductName     string         `json:"product_name"`
	WarehouseName   string         `json:"warehouse_name"`
	OldQuantity     int            `json:"old_quantity"`
	NewQuantity     int            `json:"new_quantity"`
	CurrentQuantity int            `json:"current_quantity"`
	MinStock        *int           `json:"min_stock,omitempty"`
	MaxStock        *int           `json:"max_stock,omitempty"`
	Message         string         `json:"message"`
	Recipients      []RecipientRef `json:"recipients,omitempty"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

// Topic for all alerts regardless of warehouse.
const TopicAlerts = "alerts"

// WarehouseTopic returns the topic scoped to one warehouse.
func WarehouseTopic(warehouseID string) string {
	return "alerts.warehouse." + warehouseID
}

// RenderMessage builds the human-readable alert text from the event fields.
// Rendered once at creation time and stored on the record.
func RenderMessage(c Classification, display Display, quantity int, minStock, maxStock *int) string {
	switch c {
	case ClassificationLowStock:
		if minStock != nil {
			return fmt.Sprintf("Low stock: %s at %s is down to %d (minimum %d)",
				display.ProductName, display.WarehouseName, quantity, *minStock)
		}
		return fmt.Sprintf("Low stock: %s at %s is down to %d",
			display.ProductName, display.WarehouseName, quantity)
	case ClassificationOverstock:
		if maxStock != nil {
			return fmt.Sprintf("Overstock: %s at %s is up to %d (maximum %d)",
				display.ProductName, display.WarehouseName, quantity, *maxStock)
		}
		return fmt.Sprintf("Overstock: %s at %s is up to %d",
			display.ProductName, display.WarehouseName, quantity)
	}
	return fmt.Sprintf("Stock level for %s at %s is %d",
		display.ProductName, display.WarehouseName, quantity)
}
