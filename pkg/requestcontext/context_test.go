package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsOnEmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserID(ctx))
	assert.Empty(t, SessionID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := WithUserID(context.Background(), "u-1")
	ctx = WithSessionID(ctx, "s-1")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8.0")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, "u-1", UserID(ctx))
	assert.Equal(t, "s-1", SessionID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
