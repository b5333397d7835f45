package handlers

import (
	"net/http"
	"time"

	"urst/middlewares"
)

type shortenRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

type shortenResponse struct {
	Code        string     `json:"code"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	OriginalURL string     `json:"originalUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Created     bool       `json:"created"`
}

// Shorten handles POST /api/shorten.
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if err := h.decode(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Shorten(r.Context(), req.URL, middlewares.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shortenResponse{
		Code:        res.Link.Code,
		ShortCode:   res.Link.Code,
		ShortURL:    h.shortURL(r, res.Link.Code),
		OriginalURL: res.Link.OriginalURL,
		CreatedAt:   res.Link.CreatedAt,
		ExpiresAt:   res.Link.ExpiresAt,
		Created:     res.Created,
	})
}
