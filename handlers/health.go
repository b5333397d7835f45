package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "unhealthy",
			"message": "Database connectivity failed",
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "Server and database are up and running",
	})
}
