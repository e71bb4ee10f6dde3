package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	t.Helper()
	c, err := NewCache(Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestKVSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:abc", "42", 0))
	v, err := c.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = c.Get(ctx, "session:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "reminder:1:2", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "reminder:1:2", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second SetNX on live key must fail")
}

func TestZSetOrdering(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ZAdd(ctx, "spend", 120.50, "7"))
	require.NoError(t, c.ZAdd(ctx, "spend", 300.00, "3"))
	require.NoError(t, c.ZAdd(ctx, "spend", 45.25, "9"))

	members, err := c.ZRevRange(ctx, "spend", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "7", "9"}, members)

	// Score update re-sorts.
	require.NoError(t, c.ZAdd(ctx, "spend", 500, "9"))
	members, err = c.ZRevRange(ctx, "spend", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "3"}, members)

	score, err := c.ZScore(ctx, "spend", "7")
	require.NoError(t, err)
	assert.InDelta(t, 120.50, score, 0.001)
}

func TestPubSubFanout(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "notify:events")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "notify:events", `{"type":"payment_received"}`))

	select {
	case msg := <-ch:
		assert.Equal(t, "notify:events", msg.Channel)
		assert.Contains(t, msg.Payload, "payment_received")
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}
