package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/models"
)

// BackupFilename is the download name of a backup taken on the given date.
func BackupFilename(date string) string {
	return fmt.Sprintf("cars-service-log-backup-%s.json", date)
}

// ExportBackup downloads the active state as a JSON attachment.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	snap := h.manager.ExportState()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		h.log.WithError(err).Error("Failed to encode backup")
		http.Error(w, "Failed to encode backup", http.StatusInternalServerError)
		return
	}

	name := BackupFilename(h.now().UTC().Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportBackup replaces the active state with an uploaded backup. The trash
// is kept. A body that is not a JSON object is rejected with 400.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "backup too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.ImportJSON(body)
	if err != nil {
		h.log.WithError(err).Warn("Rejected backup import")
		http.Error(w, "backup is not a valid service log export", http.StatusBadRequest)
		return
	}

	h.log.WithFields(logrus.Fields{
		"vehicles":  len(snap.Vehicles),
		"entries":   len(snap.ServiceEntries),
		"intervals": len(snap.ServiceIntervals),
	}).Info("Imported backup")
	writeJSON(w, http.StatusOK, h.manager.ExportState())
}
