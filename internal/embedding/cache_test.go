package embedding

import "testing"

func TestCacheGetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	v, ok := c.Get("a")
	if !ok || v[0] != 1 {
		t.Errorf("expected cached value, got %v %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3}) // evicts "a"
	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to survive")
	}
}

func TestCacheUpdateExisting(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{9})
	v, _ := c.Get("a")
	if v[0] != 9 {
		t.Errorf("expected updated value 9, got %v", v)
	}
}
