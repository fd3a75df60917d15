package httpserver

import (
	"net/http"
	"time"
)

// Timeouts bounds each phase of a request. Zero fields fall back to the
// defaults below.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

var defaults = Timeouts{
	ReadHeader: 5 * time.Second,
	Read:       15 * time.Second,
	Write:      30 * time.Second,
	Idle:       60 * time.Second,
}

// New builds the API server.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: or(t.ReadHeader, defaults.ReadHeader),
		ReadTimeout:       or(t.Read, defaults.Read),
		WriteTimeout:      or(t.Write, defaults.Write),
		IdleTimeout:       or(t.Idle, defaults.Idle),
	}
}

func or(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
