package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"urst/middlewares"
	"urst/shortener"

	"github.com/go-playground/validator/v10"
)

// Pinger checks the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP API on top of the shortening service.
type Handler struct {
	svc      *shortener.Service
	db       Pinger
	baseURL  string
	logger   *slog.Logger
	validate *validator.Validate
}

func New(svc *shortener.Service, db Pinger, baseURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:      svc,
		db:       db,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		validate: validator.New(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into dst and runs its validate tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request payload")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return fmt.Errorf("%s is required", strings.ToLower(fe.Field()))
			}
			return fmt.Errorf("%s: failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return err
	}
	return nil
}

// fail maps service errors to responses. Anything unexpected is a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shortener.ErrInvalidURL):
		errorJSON(w, http.StatusBadRequest, "Invalid URL")
	case errors.Is(err, shortener.ErrBlockedHost):
		errorJSON(w, http.StatusBadRequest, "This host cannot be shortened")
	case errors.Is(err, shortener.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "URL not found")
	case errors.Is(err, shortener.ErrForbidden):
		errorJSON(w, http.StatusForbidden, "You can only delete your own URLs")
	case errors.Is(err, shortener.ErrConflict):
		errorJSON(w, http.StatusConflict, "Could not allocate a short code, try again")
	default:
		h.serverError(w, r, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		"request_id", middlewares.RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	middlewares.RecordError(r.Context(), err)
	errorJSON(w, http.StatusInternalServerError, "Internal server error")
}

// shortURL is BASE_URL/code when configured, otherwise derived from the
// request's scheme and Host.
func (h *Handler) shortURL(r *http.Request, code string) string {
	if h.baseURL != "" {
		return h.baseURL + "/" + code
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + r.Host + "/" + code
}
