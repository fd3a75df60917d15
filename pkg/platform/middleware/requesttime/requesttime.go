// Package requesttime pins a single "now" per request so every record created
// while serving it carries the same timestamp.
package requesttime

import (
	"net/http"
	"time"

	"hrdms/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
