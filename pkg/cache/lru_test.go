package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newWithClock(maxSize int, ttl time.Duration) (*LRU[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[int](maxSize, ttl)
	c.now = clock.Now
	return c, clock
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		c := New[string](100, 5*time.Minute)
		assert.Equal(t, 100, c.maxSize)
		assert.Equal(t, 5*time.Minute, c.ttl)
		assert.True(t, c.enabled)
	})

	t.Run("non-positive size uses default", func(t *testing.T) {
		assert.Equal(t, DefaultMaxSize, New[string](0, 0).maxSize)
		assert.Equal(t, DefaultMaxSize, New[string](-10, 0).maxSize)
	})
}

// =============================================================================
// Get / Put Tests
// =============================================================================

func TestLRU_GetPut(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		c := New[int](10, 0)
		c.Put("a", 1)
		got, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, got)
	})

	t.Run("miss returns zero value", func(t *testing.T) {
		c := New[int](10, 0)
		got, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Zero(t, got)
	})

	t.Run("update existing key", func(t *testing.T) {
		c := New[int](10, 0)
		c.Put("a", 1)
		c.Put("a", 2)
		got, _ := c.Get("a")
		assert.Equal(t, 2, got)
		assert.Equal(t, 1, c.Len())
	})
}

func TestLRU_TTL(t *testing.T) {
	t.Run("entry expires", func(t *testing.T) {
		c, clock := newWithClock(10, time.Minute)
		c.Put("a", 1)
		clock.Advance(59 * time.Second)
		_, ok := c.Get("a")
		assert.True(t, ok)

		clock.Advance(2 * time.Second)
		_, ok = c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("zero TTL never expires", func(t *testing.T) {
		c, clock := newWithClock(10, 0)
		c.Put("a", 1)
		clock.Advance(24 * time.Hour)
		_, ok := c.Get("a")
		assert.True(t, ok)
	})

	t.Run("update refreshes TTL", func(t *testing.T) {
		c, clock := newWithClock(10, time.Minute)
		c.Put("a", 1)
		clock.Advance(50 * time.Second)
		c.Put("a", 2)
		clock.Advance(50 * time.Second)
		got, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, got)
	})
}

func TestLRU_Eviction(t *testing.T) {
	t.Run("evicts least recently used", func(t *testing.T) {
		c := New[int](3, 0)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Put("d", 4)

		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, []string{"d", "c", "b"}, c.Keys())
		assert.Equal(t, uint64(1), c.Stats().Evictions)
	})

	t.Run("access promotes entry", func(t *testing.T) {
		c := New[int](3, 0)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Get("a")
		c.Put("d", 4)

		_, ok := c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("b")
		assert.False(t, ok)
	})
}

func TestLRU_RemoveClear(t *testing.T) {
	c := New[int](10, 0)
	c.Put("a", 1)
	c.Put("b", 2)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
}

// =============================================================================
// Stats / Enable Tests
// =============================================================================

func TestLRU_Stats(t *testing.T) {
	c := New[int](10, 0)
	assert.Zero(t, c.Stats().HitRate)

	c.Put("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, 10, s.MaxSize)
	assert.Equal(t, uint64(3), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 75.0, s.HitRate, 0.001)
}

func TestLRU_SetEnabled(t *testing.T) {
	c := New[int](10, 0)
	c.Put("a", 1)

	c.SetEnabled(false)
	assert.Equal(t, 0, c.Len())
	c.Put("b", 2)
	_, ok := c.Get("b")
	assert.False(t, ok)

	c.SetEnabled(true)
	c.Put("b", 2)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := New[int](50, time.Minute)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (w*500+i)%100)
				c.Put(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.Remove(key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
	s := c.Stats()
	assert.Equal(t, uint64(8*500), s.Hits+s.Misses)
}
