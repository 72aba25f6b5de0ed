package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"

	requestIDHeader = "X-Request-ID"
)

// RequestID tags the request with an id that is echoed in the X-Request-ID response
// header and attached to every log line and error report for the request.
//
// An inbound X-Request-ID is kept only when it parses as a UUID, and is then
// re-rendered in canonical form. Anything else is replaced with a fresh UUID:
// the value reaches the access log and a response header, so free-form client
// text must not be able to forge log fields or collide with ids we mint.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := canonicalRequestID(r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

func canonicalRequestID(inbound string) string {
	if id, err := uuid.Parse(inbound); err == nil && id != uuid.Nil {
		return id.String()
	}
	return uuid.NewString()
}

// RequestIDFromContext returns the id set by RequestID, or "" outside it.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
