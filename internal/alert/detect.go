package alert

import "time"

// Snapshot is the inventory state after a committed quantity change. It is
// owned by the inventory collaborator and read-only here.
type Snapshot struct {
	InventoryID string `json:"inventory_id"`
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
	MinStock    *int   `json:"min_stock,omitempty"`
	MaxStock    *int   `json:"max_stock,omitempty"`
}

// TransitionEvent describes a quantity change that qualifies for alerting.
// It is ephemeral: durability comes only from the records the dispatcher
// writes, never from the event itself.
type TransitionEvent struct {
	InventoryID       string         `json:"inventory_id"`
	ProductID         string         `json:"product_id"`
	WarehouseID       string         `json:"warehouse_id"`
	OldQuantity       int            `json:"old_quantity"`
	NewQuantity       int            `json:"new_quantity"`
	MinStock          *int           `json:"min_stock,omitempty"`
	MaxStock          *int           `json:"max_stock,omitempty"`
	OldClassification Classification `json:"old_classification"`
	NewClassification Classification `json:"new_classification"`
	OccurredAt        time.Time      `json:"occurred_at"`
}

// Detect compares the previous quantity against the snapshot and reports
// whether the change is alert-worthy. On first creation of an inventory
// record callers pass previousQuantity 0, so a record created already below
// its minimum alerts immediately.
//
// Detection fires on every qualifying write while the new state is abnormal,
// not only on the transition edge into it: a drop from 3 to 2 with
// min_stock 10 re-alerts. No-op updates (previous == new) never alert.
func Detect(snap Snapshot, previousQuantity int, now time.Time) (TransitionEvent, bool) {
	if previousQuantity == snap.Quantity {
		return TransitionEvent{}, false
	}

	oldClass := Classify(previousQuantity, snap.MinStock, snap.MaxStock)
	newClass := Classify(snap.Quantity, snap.MinStock, snap.MaxStock)
	if !newClass.AlertWorthy() {
		return TransitionEvent{}, false
	}

	return TransitionEvent{
		InventoryID:       snap.InventoryID,
		ProductID:         snap.ProductID,
		WarehouseID:       snap.WarehouseID,
		OldQuantity:       previousQuantity,
		NewQuantity:       snap.Quantity,
		MinStock:          snap.MinStock,
		MaxStock:          snap.MaxStock,
		OldClassification: oldClass,
		NewClassification: newClass,
		OccurredAt:        now,
	}, true
}
