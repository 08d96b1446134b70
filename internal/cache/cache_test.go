package cache

import "testing"

func TestNewFIFORejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		if _, err := NewFIFO[int](capacity); err == nil {
			t.Errorf("NewFIFO(%d) expected error, got nil", capacity)
		}
	}
}

func TestFIFOEvictsOldestInserted(t *testing.T) {
	c, err := NewFIFO[string](2)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", "a")
	c.Put("B", "b")

	// Reading A must not protect it from eviction: the cache is
	// insertion-ordered, not access-ordered.
	if _, ok := c.Get("A"); !ok {
		t.Fatal("expected A to be cached")
	}

	c.Put("C", "c")

	if c.Contains("A") {
		t.Error("A should have been evicted first")
	}
	if !c.Contains("B") {
		t.Error("B should still be cached")
	}
	if !c.Contains("C") {
		t.Error("C should be cached")
	}
}

func TestFIFOOverwriteKeepsInsertionPosition(t *testing.T) {
	c, err := NewFIFO[int](2)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", 1)
	c.Put("B", 2)
	c.Put("A", 10) // overwrite, A keeps its slot at the front of the queue
	c.Put("C", 3)

	if c.Contains("A") {
		t.Error("A should have been evicted despite the overwrite")
	}
	if v, ok := c.Get("B"); !ok || v != 2 {
		t.Errorf("B = %d, %v; want 2, true", v, ok)
	}
	if v, ok := c.Get("C"); !ok || v != 3 {
		t.Errorf("C = %d, %v; want 3, true", v, ok)
	}
}

func TestFIFOStats(t *testing.T) {
	c, err := NewFIFO[int](4)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("k", 1)
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 2, 1", hits, misses)
	}
}

func TestFIFOPurge(t *testing.T) {
	c, err := NewFIFO[int](4)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("a", 1)
	c.Put("b", 2)
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", c.Len())
	}
	c.Put("c", 3)
	if !c.Contains("c") {
		t.Error("cache should accept entries after Purge")
	}
}
