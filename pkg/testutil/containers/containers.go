//go:build integration

// Package containers starts disposable backing services for integration tests.
package containers

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

const startupTimeout = 3 * time.Minute

func startupContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), startupTimeout)
}

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
}
