package handlers

import "net/http"

// Cleanup handles POST /api/cleanup. Callers are authenticated by
// middlewares.RequireBearer.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Cleanup(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "cleanup failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to clean up expired URLs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "purged": n})
}
