package middlewares

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

const failureContextKey contextKey = "failure"

type failure struct {
	err error
}

// RecordError attaches err to the request so SentryAlertMiddleware reports
// it instead of a bare status message.
func RecordError(ctx context.Context, err error) {
	if f, ok := ctx.Value(failureContextKey).(*failure); ok {
		f.err = err
	}
}

// SentryAlertMiddleware reports each 5xx response to Sentry once, through the
// hub sentryhttp put on the request context.
func SentryAlertMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := &failure{}
		rw := wrap(w)
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), failureContextKey, f)))
		if rw.status < http.StatusInternalServerError {
			return
		}
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			return
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", RequestID(r.Context()))
			scope.SetTag("status", fmt.Sprint(rw.status))
			if f.err != nil {
				hub.CaptureException(f.err)
				return
			}
			hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", r.Method, r.URL.Path, rw.status))
		})
	})
}
