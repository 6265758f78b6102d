package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[string](10, -time.Second)

	c.Set("a", "stale")
	if _, ok := c.Get("a"); ok {
		t.Error("entry past its TTL should miss")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, expired entry should be dropped on read", c.Size())
	}
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh recency so b is the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently read entry should survive")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_SetRefreshesExisting(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after overwriting the same key", c.Size())
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("2025-01:all", 1)
	c.Set("2025-01:cat=food", 2)
	c.Set("2025-02:all", 3)

	if n := c.DeletePrefix("2025-01"); n != 2 {
		t.Errorf("DeletePrefix() removed %d entries, want 2", n)
	}
	if _, ok := c.Get("2025-02:all"); !ok {
		t.Error("entries of other months must survive")
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_Clear(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after Clear", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache should stay usable after Clear")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)
	c.Set("a", 1)
	c.Set("b", 2)

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](10, time.Minute))

	// Must not hang waiting for a loop that never ran.
	m.Stop()
}

func TestManager_CleanupLoop(t *testing.T) {
	m := NewManager()
	c := NewLRUCache[int](10, -time.Second)
	m.Register(c)
	c.Set("a", 1)

	m.StartCleanup(5 * time.Millisecond)
	deadline := time.After(time.Second)
	for c.Size() > 0 {
		select {
		case <-deadline:
			t.Fatal("cleanup loop never swept the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	m.Stop()
}
