package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestRegistry(idle time.Duration) (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	registry := NewRegistry(MemoryFactory, idle)
	registry.now = clock.Now
	return registry, clock
}

func TestRegistryAcquire(t *testing.T) {
	registry, _ := newTestRegistry(time.Hour)

	first := registry.Acquire(100)
	again := registry.Acquire(100)
	other := registry.Acquire(200)

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, Idle, first.State())
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryEnd(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(time.Hour)

	s := registry.Acquire(1)
	require.NoError(t, s.Cache.Replace(ctx, summaries(5)))
	require.NoError(t, registry.End(ctx, 1))

	_, ok := registry.Get(1)
	assert.False(t, ok)
	_, found, _ := s.Cache.Lookup(ctx, 5)
	assert.False(t, found, "ended session cache should be cleared")

	require.NoError(t, registry.End(ctx, 1), "ending twice is a no-op")

	fresh := registry.Acquire(1)
	assert.NotEqual(t, s.ID, fresh.ID)
}

func TestRegistrySweep(t *testing.T) {
	ctx := context.Background()
	registry, clock := newTestRegistry(10 * time.Minute)

	idle := registry.Acquire(1)
	require.NoError(t, idle.Cache.Replace(ctx, summaries(3)))
	busy := registry.Acquire(2)
	clock.now = clock.now.Add(5 * time.Minute)
	registry.Acquire(3)

	clock.now = clock.now.Add(6 * time.Minute)

	busy.Lock()
	assert.Equal(t, 1, registry.Sweep(ctx))
	busy.Unlock()

	_, ok := registry.Get(1)
	assert.False(t, ok)
	_, ok = registry.Get(2)
	assert.True(t, ok, "busy sessions are never swept")
	_, ok = registry.Get(3)
	assert.True(t, ok, "recently used sessions stay")

	_, found, _ := idle.Cache.Lookup(ctx, 3)
	assert.False(t, found)

	assert.Equal(t, 1, registry.Sweep(ctx))
	assert.Equal(t, 1, registry.Len())
}

func TestRegistrySweepDisabled(t *testing.T) {
	registry, clock := newTestRegistry(0)
	registry.Acquire(1)
	clock.now = clock.now.Add(24 * time.Hour)
	assert.Equal(t, 0, registry.Sweep(context.Background()))
}

func TestRegistryClose(t *testing.T) {
	registry, _ := newTestRegistry(time.Hour)
	registry.Acquire(3)
	registry.Acquire(1)
	require.NoError(t, registry.Close(context.Background()))
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	registry, _ := newTestRegistry(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		registry.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "favorite-detail", FavoriteDetailShown.String())
	assert.Equal(t, "unknown", State(42).String())
}
