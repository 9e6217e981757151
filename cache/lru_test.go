package cache

import (
	"fmt"
	"testing"
)

func TestSetAndGet(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("got %v %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestEvictionCount(t *testing.T) {
	const maxSize, extra = 8, 5
	c := New[int, int](maxSize)
	for i := 0; i < maxSize+extra; i++ {
		c.Set(i, i)
	}
	if c.Size() != maxSize {
		t.Fatalf("size = %d, want %d", c.Size(), maxSize)
	}
	s := c.Stats()
	if s.Evictions != extra {
		t.Fatalf("evictions = %d, want %d", s.Evictions, extra)
	}
	// 被淘汰的应是最早插入的extra个
	for i := 0; i < extra; i++ {
		if c.Has(i) {
			t.Fatalf("key %d should be evicted", i)
		}
	}
	for i := extra; i < maxSize+extra; i++ {
		if !c.Has(i) {
			t.Fatalf("key %d should remain", i)
		}
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)
	if c.Has("b") {
		t.Fatal("b should be evicted, not a")
	}
	if !c.Has("a") || !c.Has("c") {
		t.Fatal("a and c should remain")
	}
}

func TestSetExistingRefreshesRecency(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)
	if c.Has("b") {
		t.Fatal("b should be evicted")
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("a = %d, want 10", v)
	}
}

func TestHasDoesNotPromote(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	if !c.Has("a") {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)
	if c.Has("a") {
		t.Fatal("a should be evicted, Has must not refresh recency")
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	if !c.Delete("a") {
		t.Fatal("delete should report true")
	}
	if c.Delete("a") {
		t.Fatal("second delete should report false")
	}
	c.Set("b", 2)
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("size after clear = %d", c.Size())
	}
}

func TestStats(t *testing.T) {
	c := New[string, int](2)
	s := c.Stats()
	if s.HitRate != 0 {
		t.Fatalf("hit rate without accesses = %f", s.HitRate)
	}
	if s.MaxSize != 2 {
		t.Fatalf("max size = %d", s.MaxSize)
	}
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("x")
	c.Get("y")
	s = c.Stats()
	if s.Hits != 2 || s.Misses != 2 {
		t.Fatalf("hits=%d misses=%d", s.Hits, s.Misses)
	}
	if s.HitRate != 50 {
		t.Fatalf("hit rate = %f, want 50", s.HitRate)
	}
}

func TestDefaultCapacity(t *testing.T) {
	c := New[string, int](0)
	if c.Stats().MaxSize != DEFAULT_CACHE_SIZE {
		t.Fatalf("max size = %d", c.Stats().MaxSize)
	}
}

func TestEvictionOrderUnderChurn(t *testing.T) {
	c := New[string, int](3)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.Get("k0")
	c.Get("k1")
	c.Set("k3", 3) // k2为最久未使用
	if c.Has("k2") {
		t.Fatal("k2 should be evicted")
	}
	for _, k := range []string{"k0", "k1", "k3"} {
		if !c.Has(k) {
			t.Fatalf("%s should remain", k)
		}
	}
}
