package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %v, %v, want 1, true", v, ok)
	}

	// "a" is now most recently used; adding "c" evicts "b".
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)

	c.Set("k", 42)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to be missed")
	}
	if c.CleanExpired() != 0 {
		t.Error("expired entry should already be gone after Get")
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set(SummaryKey(1, 2025, 3), 1)
	c.Set(GraphsKey(1, 2025, 3), 2)
	c.Set(SummaryKey(2, 2025, 3), 3)

	removed := c.DeletePrefix(UserPrefix(1))
	if removed != 2 {
		t.Errorf("DeletePrefix removed %d, want 2", removed)
	}
	if _, ok := c.Get(SummaryKey(2, 2025, 3)); !ok {
		t.Error("other user's entry should survive")
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestKeysDisjointAcrossUsers(t *testing.T) {
	if SummaryKey(1, 2025, 3) == SummaryKey(2, 2025, 3) {
		t.Error("summary keys must differ per user")
	}
	if SummaryKey(1, 2025, 3) == GraphsKey(1, 2025, 3) {
		t.Error("summary and graphs keys must differ")
	}
}
