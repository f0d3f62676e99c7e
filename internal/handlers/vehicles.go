package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/models"
	"github.com/ukydev/cars-service-log/internal/servicedue"
	"github.com/ukydev/cars-service-log/internal/servicelog"
)

// VehicleDetail is the vehicle page: the vehicle, its history newest
// first, its intervals and their due state.
type VehicleDetail struct {
	Vehicle          models.Vehicle           `json:"vehicle"`
	ServiceEntries   []models.ServiceEntry    `json:"serviceEntries"`
	ServiceIntervals []models.ServiceInterval `json:"serviceIntervals"`
	Due              []servicedue.DueItem     `json:"due"`
}

// ListVehicles returns all vehicles.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Vehicles())
}

// CreateVehicle adds a vehicle. A name is required.
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var vehicle models.Vehicle
	if err := decodeJSON(w, r, &vehicle); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(vehicle.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if vehicle.CurrentMileage < 0 {
		http.Error(w, "currentMileage must not be negative", http.StatusBadRequest)
		return
	}

	created := h.manager.AddVehicle(vehicle)
	h.log.WithFields(logrus.Fields{"vehicle_id": created.ID, "name": created.Name}).Info("Created vehicle")
	writeJSON(w, http.StatusCreated, created)
}

// GetVehicle returns the vehicle detail with due data at the current instant.
// Everything is read from one snapshot of the service log.
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	now := h.now()
	fleet := h.manager.ExportState()

	var detail VehicleDetail
	found := false
	for _, v := range fleet.Vehicles {
		if v.ID == id {
			detail.Vehicle, found = v, true
			break
		}
	}
	if !found {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}

	detail.ServiceIntervals = []models.ServiceInterval{}
	for _, iv := range fleet.ServiceIntervals {
		if iv.VehicleID == id {
			detail.ServiceIntervals = append(detail.ServiceIntervals, iv)
		}
	}
	detail.ServiceEntries = servicelog.FilterServiceEntries(fleet.ServiceEntries, servicelog.EntryFilter{VehicleID: id}, now)
	due := servicedue.CollectIntervalDueItems(detail.ServiceIntervals, fleet.ServiceEntries, []models.Vehicle{detail.Vehicle}, now)
	detail.Due = servicedue.SortBySeverity(due)
	writeJSON(w, http.StatusOK, detail)
}

// UpdateVehicle patches a vehicle. The stored mileage is never lowered.
func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var update models.VehicleUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		http.Error(w, "name must not be empty", http.StatusBadRequest)
		return
	}

	updated, ok := h.manager.UpdateVehicle(r.PathValue("id"), update)
	if !ok {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteVehicle removes a vehicle with its entries and intervals.
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.manager.DeleteVehicle(id) {
		h.log.WithField("vehicle_id", id).Info("Deleted vehicle")
	}
	w.WriteHeader(http.StatusNoContent)
}
