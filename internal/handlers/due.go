package handlers

import (
	"net/http"

	"github.com/ukydev/cars-service-log/internal/models"
	"github.com/ukydev/cars-service-log/internal/servicedue"
)

// DueOverview returns the fleet overview at the request instant. The
// instant can be overridden with ?now= as a date or RFC 3339 timestamp.
func (h *Handler) DueOverview(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, ok := models.ParseDate(raw)
		if !ok {
			http.Error(w, "now must be YYYY-MM-DD or an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		now = parsed
	}

	fleet := h.manager.ExportState()
	overview := servicedue.BuildOverview(fleet.Vehicles, fleet.ServiceIntervals, fleet.ServiceEntries, now)
	writeJSON(w, http.StatusOK, overview)
}

// ServiceTypes lists the service types offered for entries.
func (h *Handler) ServiceTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ServiceTypes)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
