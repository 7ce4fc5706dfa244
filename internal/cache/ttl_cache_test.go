package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 50*time.Millisecond)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit with 1, got %v %v", v, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestTTLCacheEvict(t *testing.T) {
	c := NewTTLCache[string, string]()

	c.Set("k", "v", time.Minute)
	c.Evict("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected evicted entry to miss")
	}
}

func TestTTLCacheZeroTTLIsNoop(t *testing.T) {
	c := NewTTLCache[string, string]()

	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected zero ttl set to be dropped")
	}
}
