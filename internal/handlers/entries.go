package handlers

import (
	"net/http"
	"strings"

	"github.com/ukydev/cars-service-log/internal/models"
	"github.com/ukydev/cars-service-log/internal/servicelog"
)

// EntryList is the filtered entry list with its cost summary.
type EntryList struct {
	Entries   []models.ServiceEntry `json:"entries"`
	Count     int                   `json:"count"`
	TotalCost float64               `json:"totalCost"`
}

// ListEntries returns the active entries newest first. They can be narrowed
// with ?vehicleId=, ?type= and ?period=current-year|last-year|custom, the
// latter with ?from= and ?to=. An invalid or reversed custom range is
// ignored.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := servicelog.EntryFilter{
		VehicleID: q.Get("vehicleId"),
		Type:      q.Get("type"),
		Period:    q.Get("period"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	}
	switch filter.Period {
	case "", servicelog.PeriodAll, servicelog.PeriodCurrentYear, servicelog.PeriodLastYear, servicelog.PeriodCustom:
	default:
		http.Error(w, "period must be all, current-year, last-year or custom", http.StatusBadRequest)
		return
	}

	entries := h.manager.FilterServiceEntries(filter, h.now())
	writeJSON(w, http.StatusOK, EntryList{
		Entries:   entries,
		Count:     len(entries),
		TotalCost: servicelog.TotalCost(entries),
	})
}

// CreateEntry adds a service entry. vehicleId is required and a date, when
// given, must parse. Without a mileage the entry takes the vehicle's
// current mileage.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.ServiceEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(entry.VehicleID) == "" {
		http.Error(w, "vehicleId is required", http.StatusBadRequest)
		return
	}
	if err := validateEntryFields(&entry.Date, entry.Mileage, entry.Cost); err != "" {
		http.Error(w, err, http.StatusBadRequest)
		return
	}
	if entry.Mileage == nil {
		if vehicle, ok := h.manager.Vehicle(entry.VehicleID); ok {
			entry.Mileage = models.Float64(vehicle.CurrentMileage)
		}
	}
	writeJSON(w, http.StatusCreated, h.manager.AddServiceEntry(entry))
}

// UpdateEntry patches an active service entry.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var update models.ServiceEntryUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if update.VehicleID != nil && strings.TrimSpace(*update.VehicleID) == "" {
		http.Error(w, "vehicleId must not be empty", http.StatusBadRequest)
		return
	}
	if err := validateEntryFields(update.Date, update.Mileage, update.Cost); err != "" {
		http.Error(w, err, http.StatusBadRequest)
		return
	}

	updated, ok := h.manager.UpdateServiceEntry(r.PathValue("id"), update)
	if !ok {
		http.Error(w, "service entry not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteEntry moves an entry to the trash.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	h.manager.DeleteServiceEntry(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func validateEntryFields(date *string, mileage, cost *float64) string {
	if date != nil && *date != "" {
		if _, ok := models.ParseDate(*date); !ok {
			return "date must be YYYY-MM-DD or an ISO timestamp"
		}
	}
	if mileage != nil && *mileage < 0 {
		return "mileage must not be negative"
	}
	if cost != nil && *cost < 0 {
		return "cost must not be negative"
	}
	return ""
}
