package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvOne(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPubSub_DeliversToSubscribers(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch1, cancel1, err := ps.Subscribe(ctx, "notify:user:1")
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := ps.Subscribe(ctx, "notify:user:1")
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "notify:user:1", "hello"))

	for _, ch := range []<-chan *LocalMessage{ch1, ch2} {
		msg := recvOne(t, ch)
		assert.Equal(t, "notify:user:1", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	}
}

func TestPubSub_ChannelIsolation(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "notify:user:1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "notify:user:2", "not for you"))

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %q", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPubSub_CancelClosesChannel(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "notify:user:1")
	require.NoError(t, err)

	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	assert.False(t, open)
	// publishing after cancel reaches nobody and does not panic
	require.NoError(t, ps.Publish(ctx, "notify:user:1", "dropped"))
}

func TestPubSub_MultiChannelSubscribe(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "a", "b")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "a", "1"))
	require.NoError(t, ps.Publish(ctx, "b", "2"))

	assert.Equal(t, "1", recvOne(t, ch).Payload)
	assert.Equal(t, "2", recvOne(t, ch).Payload)
}
