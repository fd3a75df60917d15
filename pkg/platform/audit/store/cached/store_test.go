package cached

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/audit/store/memory"
)

// An unreachable Redis must never break reads or writes.
func TestStore_FallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := New(memory.NewInMemoryStore(), client, time.Minute, nil)
	rec, err := audit.NewRecord(uuid.NewString(), audit.CreateRequest{
		ActorID: "u1", Action: audit.ActionCreate, EntityType: audit.EntityArea, EntityID: "a1",
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, rec))
	got, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	page, err := store.ListByActor(ctx, "u1", audit.Pagination{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestCodec_CachedCopyMatchesStoredRecord(t *testing.T) {
	rec, err := audit.NewRecord(uuid.NewString(), audit.CreateRequest{
		ActorID: "u1", Action: audit.ActionUpload, EntityType: audit.EntityDocument, EntityID: "d1",
		Metadata: audit.Metadata{
			"size_bytes":     int64(9007199254740993),
			"changed_fields": []string{"file_name"},
			"mime_type":      "application/pdf",
		},
	}, time.Now())
	require.NoError(t, err)

	raw, err := encode(rec)
	require.NoError(t, err)
	got, err := decode(raw)
	require.NoError(t, err)

	assert.Equal(t, rec, got)
	assert.Equal(t, int64(9007199254740993), got.Metadata["size_bytes"])
}
