package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrdms/internal/events"
	"hrdms/pkg/requestcontext"
)

func viewed(id string) events.Event {
	return events.DocumentViewedEvent{Base: events.Base{ID: id, ActorID: "u1"}, DocumentID: "d1"}
}

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := New(nil, WithWorkers(2))

	var mu sync.Mutex
	got := map[string]int{}
	for range 2 {
		bus.Subscribe(events.DocumentViewed, func(_ context.Context, e events.Event) {
			mu.Lock()
			got[e.EventID()]++
			mu.Unlock()
		})
	}

	bus.Publish(context.Background(), viewed("e1"))
	bus.Publish(context.Background(), viewed("e2"))
	require.NoError(t, bus.Close(context.Background()))

	assert.Equal(t, map[string]int{"e1": 2, "e2": 2}, got)
}

func TestBus_IgnoresUnsubscribedNames(t *testing.T) {
	bus := New(nil)
	var calls atomic.Int32
	bus.Subscribe(events.UserCreated, func(context.Context, events.Event) { calls.Add(1) })

	bus.Publish(context.Background(), viewed("e1"))
	require.NoError(t, bus.Close(context.Background()))

	assert.Zero(t, calls.Load())
	assert.Zero(t, bus.Dropped())
}

func TestBus_PublishDoesNotWaitForHandlers(t *testing.T) {
	bus := New(nil, WithWorkers(1))
	release := make(chan struct{})
	bus.Subscribe(events.DocumentViewed, func(context.Context, events.Event) { <-release })

	done := make(chan struct{})
	go func() {
		bus.Publish(context.Background(), viewed("e1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow handler")
	}
	close(release)
	require.NoError(t, bus.Close(context.Background()))
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	var dropped []string
	bus := New(nil, WithWorkers(1), WithBuffer(1), WithDropHook(func(e events.Event) {
		dropped = append(dropped, e.EventID())
	}))
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	bus.Subscribe(events.DocumentViewed, func(context.Context, events.Event) {
		once.Do(func() { close(started) })
		<-release
	})

	bus.Publish(context.Background(), viewed("busy"))
	<-started
	bus.Publish(context.Background(), viewed("queued"))
	bus.Publish(context.Background(), viewed("overflow"))

	assert.Equal(t, []string{"overflow"}, dropped)
	assert.EqualValues(t, 1, bus.Dropped())
	close(release)
	require.NoError(t, bus.Close(context.Background()))
}

func TestBus_DeliveryOutlivesPublisherContext(t *testing.T) {
	bus := New(nil)
	got := make(chan context.Context, 1)
	bus.Subscribe(events.DocumentViewed, func(ctx context.Context, _ events.Event) { got <- ctx })

	ctx, cancel := context.WithCancel(requestcontext.WithUserID(context.Background(), "u1"))
	bus.Publish(ctx, viewed("e1"))
	cancel()
	require.NoError(t, bus.Close(context.Background()))

	delivered := <-got
	assert.NoError(t, delivered.Err())
	assert.Equal(t, "u1", requestcontext.UserID(delivered))
}

func TestBus_HandlerPanicDoesNotKillWorker(t *testing.T) {
	bus := New(nil, WithWorkers(1))
	var calls atomic.Int32
	bus.Subscribe(events.DocumentViewed, func(_ context.Context, e events.Event) {
		calls.Add(1)
		if e.EventID() == "bad" {
			panic("boom")
		}
	})

	bus.Publish(context.Background(), viewed("bad"))
	bus.Publish(context.Background(), viewed("good"))
	require.NoError(t, bus.Close(context.Background()))

	assert.EqualValues(t, 2, calls.Load())
}

func TestBus_PublishAfterCloseIsDropped(t *testing.T) {
	bus := New(nil)
	bus.Subscribe(events.DocumentViewed, func(context.Context, events.Event) {})
	require.NoError(t, bus.Close(context.Background()))
	require.NoError(t, bus.Close(context.Background()))

	bus.Publish(context.Background(), viewed("late"))
	assert.EqualValues(t, 1, bus.Dropped())
}

func TestBus_CloseHonoursDeadline(t *testing.T) {
	bus := New(nil, WithWorkers(1))
	release := make(chan struct{})
	defer close(release)
	bus.Subscribe(events.DocumentViewed, func(context.Context, events.Event) { <-release })
	bus.Publish(context.Background(), viewed("stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Close(ctx), context.DeadlineExceeded)
}

func TestBus_DispatchIsSynchronous(t *testing.T) {
	bus := New(nil)
	defer bus.Close(context.Background())

	var seen []string
	bus.Subscribe(events.DocumentViewed, func(_ context.Context, e events.Event) { seen = append(seen, e.EventID()) })
	bus.Subscribe(events.DocumentViewed, func(context.Context, events.Event) { panic("second handler") })

	bus.Dispatch(context.Background(), viewed("e1"))
	assert.Equal(t, []string{"e1"}, seen)
}
