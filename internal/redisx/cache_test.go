package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live Redis when REDIS_TEST_ADDR is set.
func testClient(t *testing.T) *Owners {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return &Owners{RDB: rdb}
}

func TestOwners(t *testing.T) {
	o := testClient(t)
	ctx := context.Background()
	user := uuid.NewString()

	assert.False(t, o.Owned(ctx, user, "p1"))
	o.MarkOwned(ctx, user, "p1")
	assert.True(t, o.Owned(ctx, user, "p1"))
	o.Forget(ctx, user, "p1")
	assert.False(t, o.Owned(ctx, user, "p1"))
}

func TestLocksExclusive(t *testing.T) {
	l := Locks{RDB: testClient(t).RDB}
	ctx := context.Background()
	key := uuid.NewString()

	release, ok, err := l.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := l.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestDedupAndStatusCache(t *testing.T) {
	rdb := testClient(t).RDB
	ctx := context.Background()
	id := uuid.NewString()

	d := Dedup{RDB: rdb}
	assert.False(t, d.Seen(ctx, "delivery", id))
	d.Mark(ctx, "delivery", id)
	assert.True(t, d.Seen(ctx, "delivery", id))

	c := StatusCache{RDB: rdb}
	_, ok := c.Get(ctx, id)
	assert.False(t, ok)
	c.Put(ctx, PaymentStatus{Reference: id, Status: "completed", UpdatedAt: time.Now().UTC()})
	ps, ok := c.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "completed", ps.Status)
}
