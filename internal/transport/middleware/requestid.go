package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/gym-membership/pkg/logger"
)

const traceHeader = "X-Trace-ID"

// RequestID carries the caller's X-Trace-ID, or a fresh one, on the response
// and on every log line written through logger.From.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" || len(traceID) > 64 {
			traceID = uuid.NewString()
		}
		w.Header().Set(traceHeader, traceID)

		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
