package testutil

import (
	"net/http"
	"time"

	"hrdms/pkg/requestcontext"
)

// WithUserID marks req as authenticated by userID, as the auth middleware
// would.
func WithUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// AtTime pins the request clock.
func AtTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
