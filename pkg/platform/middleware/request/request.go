// Package request assigns and propagates a request id.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hrdms/pkg/requestcontext"
)

const HeaderRequestID = "X-Request-ID"

const maxIncomingIDLen = 128

// RequestID reuses a well-formed incoming X-Request-ID or generates one, stores
// it in the context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > maxIncomingIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
