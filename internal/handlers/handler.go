// Package handlers exposes the service log over a JSON HTTP API.
package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/metrics"
	"github.com/ukydev/cars-service-log/internal/servicelog"
)

// Handler serves the service log API.
type Handler struct {
	manager *servicelog.Manager
	log     *logrus.Entry
	now     func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the instant used for due computations and backup names.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler creates a handler over manager.
func NewHandler(manager *servicelog.Manager, log *logrus.Entry, opts ...Option) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &Handler{
		manager: manager,
		log:     log.WithField("component", "http"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on a new mux. mt may be nil, in which
// case /metrics answers 404.
func (h *Handler) Routes(mt *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/vehicles", h.ListVehicles)
	mux.HandleFunc("POST /api/vehicles", h.CreateVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}", h.GetVehicle)
	mux.HandleFunc("PATCH /api/vehicles/{id}", h.UpdateVehicle)
	mux.HandleFunc("DELETE /api/vehicles/{id}", h.DeleteVehicle)

	mux.HandleFunc("GET /api/entries", h.ListEntries)
	mux.HandleFunc("POST /api/entries", h.CreateEntry)
	mux.HandleFunc("PATCH /api/entries/{id}", h.UpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", h.DeleteEntry)

	mux.HandleFunc("GET /api/trash", h.ListTrash)
	mux.HandleFunc("DELETE /api/trash", h.ClearTrash)
	mux.HandleFunc("POST /api/trash/{id}/restore", h.RestoreEntry)
	mux.HandleFunc("DELETE /api/trash/{id}", h.PurgeEntry)

	mux.HandleFunc("GET /api/intervals", h.ListIntervals)
	mux.HandleFunc("POST /api/intervals", h.CreateInterval)
	mux.HandleFunc("PATCH /api/intervals/{id}", h.UpdateInterval)
	mux.HandleFunc("DELETE /api/intervals/{id}", h.DeleteInterval)

	mux.HandleFunc("GET /api/backup", h.ExportBackup)
	mux.HandleFunc("POST /api/backup", h.ImportBackup)

	mux.HandleFunc("GET /api/due", h.DueOverview)
	mux.HandleFunc("GET /api/service-types", h.ServiceTypes)

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", mt.Handler())
	return mux
}
