package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 5, 3, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCacheEviction(t *testing.T) {
	cache, _ := newTestCache[string](3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Set("key4", "value4") // evicts key1

	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, key := range []string{"key2", "key3", "key4"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should still be cached", key)
		}
	}
	if cache.Size() != 3 {
		t.Errorf("Size() = %d, want 3", cache.Size())
	}
}

func TestLRUCacheRecencyProtectsEntry(t *testing.T) {
	cache, _ := newTestCache[int](2, time.Hour)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Get("a")
	cache.Set("c", 3) // evicts b, the least recently used

	if _, found := cache.Get("b"); found {
		t.Error("b should have been evicted")
	}
	if v, found := cache.Get("a"); !found || v != 1 {
		t.Errorf("a = %d, %v", v, found)
	}
}

func TestLRUCacheExpiration(t *testing.T) {
	cache, clock := newTestCache[string](100, 50*time.Millisecond)
	cache.Set("key1", "value1")

	if _, found := cache.Get("key1"); !found {
		t.Fatal("key1 should be present before expiry")
	}
	clock.Advance(60 * time.Millisecond)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	cache, clock := newTestCache[string](100, 50*time.Millisecond)
	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("key%d", i), "value")
	}
	clock.Advance(60 * time.Millisecond)
	cache.Set("fresh", "value")

	if removed := cache.CleanExpired(); removed != 3 {
		t.Errorf("Expected 3 items cleaned, got %d", removed)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	cache, _ := newTestCache[string](10, time.Hour)
	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Delete("a")
	if _, found := cache.Get("a"); found {
		t.Error("a should be deleted")
	}
	cache.Purge()
	if cache.Size() != 0 {
		t.Errorf("Size() after Purge = %d", cache.Size())
	}
}

func TestLRUCacheGetOrCompute(t *testing.T) {
	cache, _ := newTestCache[int](10, time.Hour)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := cache.GetOrCompute("answer", compute)
		if err != nil || v != 42 {
			t.Fatalf("GetOrCompute = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := cache.GetOrCompute("fail", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("expected compute error, got %v", err)
	}
	if _, found := cache.Get("fail"); found {
		t.Error("failed computation should not be cached")
	}
}

func TestManagerStartStop(t *testing.T) {
	cache := NewLRUCache[string](10, time.Nanosecond)
	cache.Set("k", "v")

	m := NewManager(nil)
	m.Register(cache)
	m.StartCleanup(time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for cache.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	m.Stop()
	m.Stop()

	if cache.Size() != 0 {
		t.Errorf("expired entry was not cleaned, size %d", cache.Size())
	}
}

func BenchmarkLRUCache(b *testing.B) {
	cache := NewLRUCache[[]int](1000, time.Hour)
	value := []int{1, 2, 3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			cache.Set("bench-key", value)
		} else {
			cache.Get("bench-key")
		}
	}
}
