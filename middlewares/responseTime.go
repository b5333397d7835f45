package middlewares

import (
	"net/http"
	"time"
)

// responseWriter records the status and size of a response and stamps
// X-Response-Time just before the header goes out.
type responseWriter struct {
	http.ResponseWriter
	start       time.Time
	status      int
	bytes       int
	wroteHeader bool
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, start: time.Now(), status: http.StatusOK}
}

func (t *responseWriter) WriteHeader(statusCode int) {
	if !t.wroteHeader {
		t.ResponseWriter.Header().Set("X-Response-Time", time.Since(t.start).String())
		t.status = statusCode
		t.wroteHeader = true
	}
	t.ResponseWriter.WriteHeader(statusCode)
}

func (t *responseWriter) Write(b []byte) (int, error) {
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	n, err := t.ResponseWriter.Write(b)
	t.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (t *responseWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

// ResponseTimeMiddleware adds an X-Response-Time header to every response.
func ResponseTimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(wrap(w), r)
	})
}
