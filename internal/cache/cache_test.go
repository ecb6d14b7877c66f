package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](4, time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Set("metals", "payload")
	v, ok := c.Get("metals")
	require.True(t, ok)
	assert.Equal(t, "payload", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("metals")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestCleanExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.SetClock(func() time.Time { return now })
	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(30 * time.Second)
	c.Set("c", 3)
	now = now.Add(45 * time.Second)

	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestGetOrLoadCoalescesCalls(t *testing.T) {
	c := NewLRUCache[string](4, time.Hour)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "fresh", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", load)
			assert.NoError(t, err)
			assert.Equal(t, "fresh", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewLRUCache[string](4, time.Hour)
	boom := errors.New("upstream down")

	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Size())

	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestManagerSweep(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.SetClock(func() time.Time { return now })
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(context.Background(), time.Hour)
	defer m.Stop()

	now = now.Add(time.Minute)
	assert.Equal(t, 1, m.Sweep())
}
