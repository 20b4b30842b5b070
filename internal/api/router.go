package api

import (
	"net/http"
	"strings"

	"github.com/example/stock-alerts/internal/api/middleware"
	"github.com/example/stock-alerts/internal/auth"
	"github.com/example/stock-alerts/internal/metrics"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService, registry *metrics.Registry) http.Handler {
	mux := http.NewServeMux()

	authn := middleware.AuthMiddleware(jwtService)
	canReportChanges := middleware.RequireRole("admin", "staff")

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", registry.Handler())

	// Alerts
	mux.Handle("/alerts", authn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListAlerts(w, r)
		case http.MethodDelete:
			handlers.ClearAlerts(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/alerts/", authn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case path == "/alerts/stream" && r.Method == http.MethodGet:
			handlers.StreamAlerts(w, r)
		case path == "/alerts/read" && r.Method == http.MethodPatch:
			handlers.MarkAllAlertsRead(w, r)
		case strings.HasSuffix(path, "/read") && r.Method == http.MethodPatch:
			handlers.MarkAlertRead(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Inventory
	mux.Handle("/inventory/changes", authn(canReportChanges(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.RecordInventoryChange(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))))

	return withLogging(mux)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		println("[API]", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
