package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddTicker_RunsRepeatedly(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs int64
	s.AddTicker("sweep", 10*time.Millisecond, func(context.Context) {
		atomic.AddInt64(&runs, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestAddTicker_ReplacesByName(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var old, replacement int64
	s.AddTicker("sweep", 10*time.Millisecond, func(context.Context) { atomic.AddInt64(&old, 1) })
	s.AddTicker("sweep", 10*time.Millisecond, func(context.Context) { atomic.AddInt64(&replacement, 1) })

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&replacement) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"sweep"}, s.ListTickers())
	assert.Zero(t, atomic.LoadInt64(&old))
}

func TestAddTicker_SurvivesPanic(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs int64
	s.AddTicker("explode", 10*time.Millisecond, func(context.Context) {
		atomic.AddInt64(&runs, 1)
		panic("boom")
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestAddTicker_ContextCancelledOnRemove(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	started := make(chan struct{})
	done := make(chan struct{})
	s.AddTicker("slow", 10*time.Millisecond, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(done)
	})

	<-started
	s.Remove("slow")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled on Remove")
	}
}

func TestAddDelay_RunsOnce(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs int64
	s.AddDelay("once", 10*time.Millisecond, func(context.Context) { atomic.AddInt64(&runs, 1) })

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&runs))
}

func TestRemove_StopsTask(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs int64
	s.AddTicker("sweep", 10*time.Millisecond, func(context.Context) { atomic.AddInt64(&runs, 1) })
	s.Remove("sweep")

	assert.Empty(t, s.ListTickers())
	before := atomic.LoadInt64(&runs)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, atomic.LoadInt64(&runs))
}

func TestStop_Idempotent(t *testing.T) {
	s := New(zap.NewNop())
	s.AddTicker("sweep", time.Hour, func(context.Context) {})
	s.Stop()
	s.Stop()
}
