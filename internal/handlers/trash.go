package handlers

import "net/http"

// ListTrash returns the trashed entries.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.TrashServiceEntries())
}

// RestoreEntry moves a trashed entry back to the active entries.
func (h *Handler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	h.manager.RestoreServiceEntry(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// PurgeEntry removes a trashed entry for good.
func (h *Handler) PurgeEntry(w http.ResponseWriter, r *http.Request) {
	h.manager.DeleteServiceEntryForever(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearTrash empties the trash.
func (h *Handler) ClearTrash(w http.ResponseWriter, r *http.Request) {
	h.manager.ClearTrashServiceEntries()
	h.log.Info("Cleared trash")
	w.WriteHeader(http.StatusNoContent)
}
