package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/stock-alerts/internal/alert"
	"github.com/example/stock-alerts/internal/api/middleware"
	"github.com/example/stock-alerts/internal/inventory"
	"github.com/example/stock-alerts/internal/live"
	"github.com/example/stock-alerts/internal/store"
)

// keepAliveInterval is how often the SSE stream emits a comment line so
// idle connections survive proxies.
const keepAliveInterval = 15 * time.Second

type Handlers struct {
	alerts    store.AlertStore
	hub       *live.Hub
	inventory *inventory.Service
}

func NewHandlers(alerts store.AlertStore, hub *live.Hub, inventorySvc *inventory.Service) *Handlers {
	return &Handlers{
		alerts:    alerts,
		hub:       hub,
		inventory: inventorySvc,
	}
}

// Alert Handlers

func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.alerts.List(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []alert.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"alerts": records,
		"count":  len(records),
	})
}

func (h *Handlers) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/alerts/"), "/read")

	updated, err := h.alerts.MarkRead(r.Context(), userID, id)
	if err != nil {
		if err == store.ErrNotFound {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handlers) MarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.alerts.MarkAllRead(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"updated": count})
}

func (h *Handlers) ClearAlerts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.alerts.Clear(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

// StreamAlerts pushes live alert broadcasts over Server-Sent Events. With
// ?warehouse_id= the stream narrows to that warehouse's topic.
func (h *Handlers) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	topic := alert.TopicAlerts
	if warehouseID := r.URL.Query().Get("warehouse_id"); warehouseID != "" {
		topic = alert.WarehouseTopic(warehouseID)
	}

	events, cancel := h.hub.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case payload, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: alert\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// Inventory Handlers

type inventoryChangeRequest struct {
	InventoryID      string `json:"inventory_id"`
	ProductID        string `json:"product_id"`
	WarehouseID      string `json:"warehouse_id"`
	Quantity         int    `json:"quantity"`
	PreviousQuantity int    `json:"previous_quantity"`
	MinStock         *int   `json:"min_stock"`
	MaxStock         *int   `json:"max_stock"`
	ProductName      string `json:"product_name"`
	WarehouseName    string `json:"warehouse_name"`
}

// RecordInventoryChange accepts one committed stock change and runs it
// through alert detection. Responds before the fan-out finishes.
func (h *Handlers) RecordInventoryChange(w http.ResponseWriter, r *http.Request) {
	var req inventoryChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.InventoryID == "" || req.WarehouseID == "" {
		http.Error(w, "inventory_id and warehouse_id are required", http.StatusBadRequest)
		return
	}

	snap := alert.Snapshot{
		InventoryID: req.InventoryID,
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
	}
	display := alert.Display{
		ProductName:   req.ProductName,
		WarehouseName: req.WarehouseName,
	}

	alerting := h.inventory.RecordChange(r.Context(), snap, req.PreviousQuantity, display)
	respondJSON(w, http.StatusAccepted, map[string]any{"alerting": alerting})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}
