package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"urst/middlewares"
	"urst/models"
	"urst/shortener"
	"urst/web"

	"github.com/gorilla/mux"
)

type statsResponse struct {
	Code        string     `json:"code"`
	ShortURL    string     `json:"shortUrl"`
	OriginalURL string     `json:"originalUrl"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Recent handles GET /api/urls/recent?limit=n. The body is a bare array of
// link records, newest first.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	links, err := h.svc.Recent(r.Context(), middlewares.UserID(r.Context()), limit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if links == nil {
		links = []models.ShortLink{}
	}
	writeJSON(w, http.StatusOK, links)
}

// Stats handles GET /api/urls/{code}.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	link, err := h.svc.Stats(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Code:        link.Code,
		ShortURL:    h.shortURL(r, link.Code),
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	})
}

// Delete handles DELETE /api/urls/{code}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	err := h.svc.Delete(r.Context(), code, middlewares.UserID(r.Context()))
	if errors.Is(err, shortener.ErrStorage) {
		h.logger.ErrorContext(r.Context(), "delete failed", "code", code, "error", err)
		errorJSON(w, http.StatusBadRequest, "Failed to delete URL")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Redirect handles GET /{code}.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	target, err := h.svc.Resolve(r.Context(), code)
	if errors.Is(err, shortener.ErrNotFound) {
		web.NotFound(w)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	// Every visit must reach us to be counted.
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
