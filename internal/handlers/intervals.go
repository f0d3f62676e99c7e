package handlers

import (
	"net/http"
	"strings"

	"github.com/ukydev/cars-service-log/internal/models"
)

// ListIntervals returns the service intervals, optionally for one vehicle.
func (h *Handler) ListIntervals(w http.ResponseWriter, r *http.Request) {
	if vehicleID := r.URL.Query().Get("vehicleId"); vehicleID != "" {
		writeJSON(w, http.StatusOK, h.manager.ServiceIntervalsForVehicle(vehicleID))
		return
	}
	writeJSON(w, http.StatusOK, h.manager.ServiceIntervals())
}

// CreateInterval adds a service interval. vehicleId and name are required.
func (h *Handler) CreateInterval(w http.ResponseWriter, r *http.Request) {
	var interval models.ServiceInterval
	if err := decodeJSON(w, r, &interval); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(interval.VehicleID) == "" {
		http.Error(w, "vehicleId is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(interval.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if msg := validateIntervalLengths(interval.IntervalMonths, interval.IntervalMileage); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, h.manager.AddServiceInterval(interval))
}

// UpdateInterval patches a service interval.
func (h *Handler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	var update models.ServiceIntervalUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if msg := validateIntervalLengths(update.IntervalMonths, update.IntervalMileage); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	updated, ok := h.manager.UpdateServiceInterval(r.PathValue("id"), update)
	if !ok {
		http.Error(w, "service interval not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteInterval removes a service interval.
func (h *Handler) DeleteInterval(w http.ResponseWriter, r *http.Request) {
	h.manager.DeleteServiceInterval(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func validateIntervalLengths(months *int, mileage *float64) string {
	if months != nil && *months <= 0 {
		return "intervalMonths must be positive"
	}
	if mileage != nil && *mileage <= 0 {
		return "intervalMileage must be positive"
	}
	return ""
}
