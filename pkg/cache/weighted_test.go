package cache

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type removedLog struct {
	mu   sync.Mutex
	keys []int
}

func (r *removedLog) record(k int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, k)
}

func (r *removedLog) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.keys...)
}

func weightByLen(_ int, v string) int { return len(v) }

func TestWeightedLRUOrder(t *testing.T) {
	var log removedLog
	c := NewWeighted[int, string](10, weightByLen, log.record)

	c.Put(1, "aaa")
	c.Put(2, "bbb")
	c.Put(3, "ccc")
	if diff := cmp.Diff([]int{3, 2, 1}, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	// 访问 1 使其成为最近使用，随后插入淘汰 2
	if v, ok := c.Get(1); !ok || v != "aaa" {
		t.Fatalf("Get(1) = %q, %v", v, ok)
	}
	c.Put(4, "dd")
	if diff := cmp.Diff([]int{4, 1, 3}, c.Keys()); diff != "" {
		t.Errorf("Keys() after eviction mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, log.snapshot()); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if c.Size() != 8 {
		t.Errorf("Size() = %d, want 8", c.Size())
	}
}

func TestWeightedContainsDoesNotTouch(t *testing.T) {
	c := NewWeighted[int, string](2, nil, nil)
	c.Put(1, "a")
	c.Put(2, "b")
	if !c.Contains(1) {
		t.Fatal("Contains(1) = false")
	}
	c.Put(3, "c")
	if c.Contains(1) {
		t.Error("Contains should not refresh recency; 1 should have been evicted")
	}
}

func TestWeightedOverwrite(t *testing.T) {
	var log removedLog
	c := NewWeighted[int, string](100, weightByLen, log.record)

	c.Put(1, "old")
	c.Put(1, "newer")
	if v, _ := c.Get(1); v != "newer" {
		t.Errorf("Get(1) = %q, want newer", v)
	}
	if c.Size() != 5 || c.Len() != 1 {
		t.Errorf("Size()=%d Len()=%d, want 5 and 1", c.Size(), c.Len())
	}
	if diff := cmp.Diff([]int{1}, log.snapshot()); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestWeightedPutSameValue(t *testing.T) {
	type item struct{ n int }
	removed := 0
	c := NewWeighted[int, *item](10, func(int, *item) int { return 2 }, func(int, *item) { removed++ })

	v := &item{n: 1}
	c.Put(1, v)
	c.Put(2, &item{n: 2})
	c.Put(1, v)

	if removed != 0 {
		t.Errorf("re-putting the cached value removed it %d times", removed)
	}
	if got, ok := c.Peek(1); !ok || got != v {
		t.Errorf("Peek(1) = %v, %v, want the original value", got, ok)
	}
	if c.Len() != 2 || c.Size() != 4 {
		t.Errorf("Len()=%d Size()=%d, want 2 and 4", c.Len(), c.Size())
	}
	// 重复插入刷新访问顺序
	if diff := cmp.Diff([]int{1, 2}, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	// 不同的值仍然替换并移出旧值
	c.Put(1, &item{n: 1})
	if removed != 1 {
		t.Errorf("distinct overwrite removed %d values, want 1", removed)
	}
}

func TestWeightedPutIfAbsent(t *testing.T) {
	var log removedLog
	c := NewWeighted[int, string](100, weightByLen, log.record)

	if !c.PutIfAbsent(1, "first") {
		t.Fatal("PutIfAbsent on empty key returned false")
	}
	if c.PutIfAbsent(1, "second") {
		t.Error("PutIfAbsent on existing key returned true")
	}
	if v, _ := c.Get(1); v != "first" {
		t.Errorf("Get(1) = %q, want first", v)
	}
	if len(log.snapshot()) != 0 {
		t.Errorf("PutIfAbsent should not remove anything, removed %v", log.snapshot())
	}
}

func TestWeightedRejectsOversize(t *testing.T) {
	var log removedLog
	c := NewWeighted[int, string](4, weightByLen, log.record)
	c.Put(1, "ab")

	if c.Put(2, "too long") {
		t.Error("Put of oversize entry returned true")
	}
	if c.Contains(2) {
		t.Error("oversize entry was cached")
	}
	// 拒绝插入不会淘汰已有条目
	if !c.Contains(1) || len(log.snapshot()) != 0 {
		t.Errorf("existing entries disturbed: contains(1)=%v removed=%v", c.Contains(1), log.snapshot())
	}
	if c.Stats().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", c.Stats().Rejected)
	}

	// 恰好等于预算的条目可以插入
	if !c.Put(3, "abcd") {
		t.Error("Put of entry equal to budget returned false")
	}
	if diff := cmp.Diff([]int{3}, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestWeightedRemoveAndEvictAll(t *testing.T) {
	var log removedLog
	c := NewWeighted[int, string](100, weightByLen, log.record)
	for i := 0; i < 5; i++ {
		c.Put(i, "x")
	}

	if !c.Remove(2) {
		t.Error("Remove(2) = false")
	}
	if c.Remove(2) {
		t.Error("second Remove(2) = true")
	}

	c.EvictAll()
	if c.Len() != 0 || c.Size() != 0 {
		t.Errorf("after EvictAll Len()=%d Size()=%d", c.Len(), c.Size())
	}

	got := log.snapshot()
	if len(got) != 5 {
		t.Fatalf("removed %v, want 5 entries", got)
	}
	seen := map[int]int{}
	for _, k := range got {
		seen[k]++
	}
	for i := 0; i < 5; i++ {
		if seen[i] != 1 {
			t.Errorf("key %d removed %d times, want exactly once", i, seen[i])
		}
	}
}

func TestWeightedStats(t *testing.T) {
	c := NewWeighted[int, string](2, nil, nil)
	c.Put(1, "a")
	c.Get(1)
	c.Get(2)
	c.Put(2, "b")
	c.Put(3, "c")

	want := Stats{Hits: 1, Misses: 1, Puts: 3, Evictions: 1}
	if diff := cmp.Diff(want, c.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
	if got := c.Stats().HitRate(); got != 0.5 {
		t.Errorf("HitRate() = %f, want 0.5", got)
	}
}

// 随机操作序列下总权重始终不超过预算，且每个条目恰好移除一次
func TestWeightedBudgetInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	live := map[string]int{}
	removedTwice := 0
	var seq int

	c := NewWeighted[int, string](50,
		func(_ int, v string) int { return len(v) },
		func(_ int, v string) {
			live[v]--
			if live[v] < 0 {
				removedTwice++
			}
		},
	)

	for i := 0; i < 2000; i++ {
		key := rng.Intn(20)
		switch rng.Intn(4) {
		case 0, 1:
			seq++
			v := fmt.Sprintf("%d:%s", seq, string(make([]byte, rng.Intn(15))))
			live[v]++
			if !c.Put(key, v) {
				live[v]--
			}
		case 2:
			c.Get(key)
		case 3:
			c.Remove(key)
		}
		if c.Size() > c.MaxSize() {
			t.Fatalf("step %d: Size() %d exceeds MaxSize() %d", i, c.Size(), c.MaxSize())
		}
	}
	c.EvictAll()

	if removedTwice != 0 {
		t.Errorf("%d values removed more than once", removedTwice)
	}
	for v, n := range live {
		if n != 0 {
			t.Errorf("value %q has %d outstanding references", v, n)
		}
	}
}

func TestWeightedConcurrentAccess(t *testing.T) {
	var log removedLog
	c := NewWeighted[int, string](64, weightByLen, log.record)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (g*31 + i) % 40
				c.Put(k, "abcd")
				c.Get(k)
				if i%7 == 0 {
					c.Remove(k)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Size() > c.MaxSize() {
		t.Errorf("Size() %d exceeds MaxSize() %d", c.Size(), c.MaxSize())
	}
	if c.Size() != c.Len()*4 {
		t.Errorf("Size() %d inconsistent with Len() %d", c.Size(), c.Len())
	}
}
