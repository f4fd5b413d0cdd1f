// Package cache 提供按权重计量的 LRU 淘汰缓存
package cache

import (
	"fmt"
	"reflect"
	"sync"
)

// SizeFunc 计算条目权重（单位由调用方约定，例如 KB）
type SizeFunc[K comparable, V any] func(key K, value V) int

// RemovedFunc 条目离开缓存时回调（淘汰、覆盖、删除、清空），每个条目恰好一次
type RemovedFunc[K comparable, V any] func(key K, value V)

// Stats 缓存统计
type Stats struct {
	Hits      uint64
	Misses    uint64
	Puts      uint64
	Evictions uint64
	Rejected  uint64
}

// HitRate 命中率
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// String 调试输出
func (s Stats) String() string {
	return fmt.Sprintf("hits=%d misses=%d puts=%d evictions=%d rejected=%d",
		s.Hits, s.Misses, s.Puts, s.Evictions, s.Rejected)
}

// entry 双向链表节点，head 为最近使用，tail 为最久未使用
type entry[K comparable, V any] struct {
	key    K
	value  V
	weight int
	prev   *entry[K, V]
	next   *entry[K, V]
}

// Weighted 线程安全的按权重 LRU 缓存
// 插入后从最久未使用的一端淘汰，直到总权重不超过预算。
type Weighted[K comparable, V any] struct {
	mu        sync.Mutex
	items     map[K]*entry[K, V]
	head      *entry[K, V]
	tail      *entry[K, V]
	size      int
	maxSize   int
	sizeOf    SizeFunc[K, V]
	onRemoved RemovedFunc[K, V]
	stats     Stats
}

// removal 在锁外执行的回调
type removal[K comparable, V any] struct {
	key   K
	value V
}

// NewWeighted 创建缓存；maxSize 必须为正，sizeOf 为 nil 时每个条目权重为 1
func NewWeighted[K comparable, V any](maxSize int, sizeOf SizeFunc[K, V], onRemoved RemovedFunc[K, V]) *Weighted[K, V] {
	if maxSize <= 0 {
		panic(fmt.Sprintf("cache: maxSize must be positive, got %d", maxSize))
	}
	if sizeOf == nil {
		sizeOf = func(K, V) int { return 1 }
	}
	return &Weighted[K, V]{
		items:     make(map[K]*entry[K, V]),
		maxSize:   maxSize,
		sizeOf:    sizeOf,
		onRemoved: onRemoved,
	}
}

// Get 查找条目并标记为最近使用
func (c *Weighted[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	c.stats.Hits++
	return e.value, true
}

// Peek 查找条目，不影响最近使用顺序与统计
func (c *Weighted[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Contains 判断键是否存在，不影响最近使用顺序
func (c *Weighted[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Put 插入或覆盖条目，随后淘汰到预算以内
// 单个条目权重超过整个预算时拒绝插入并返回 false，值的所有权仍归调用方。
func (c *Weighted[K, V]) Put(key K, value V) bool {
	var removed []removal[K, V]
	ok := c.put(key, value, true, &removed)
	c.notify(removed)
	return ok
}

// PutIfAbsent 仅在键不存在时插入，返回是否插入
func (c *Weighted[K, V]) PutIfAbsent(key K, value V) bool {
	var removed []removal[K, V]
	ok := c.put(key, value, false, &removed)
	c.notify(removed)
	return ok
}

func (c *Weighted[K, V]) put(key K, value V, overwrite bool, removed *[]removal[K, V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.items[key]
	if exists && !overwrite {
		return false
	}

	weight := c.sizeOf(key, value)
	if weight < 0 {
		weight = 0
	}
	if weight > c.maxSize {
		c.stats.Rejected++
		return false
	}

	var e *entry[K, V]
	switch {
	case exists && sameValue(old.value, value):
		// 同一个值只刷新权重与访问顺序
		c.size += weight - old.weight
		old.weight = weight
		c.moveToFront(old)
		e = old
	case exists:
		c.unlink(old)
		delete(c.items, key)
		c.size -= old.weight
		*removed = append(*removed, removal[K, V]{old.key, old.value})
		fallthrough
	default:
		e = &entry[K, V]{key: key, value: value, weight: weight}
		c.items[key] = e
		c.pushFront(e)
		c.size += weight
	}
	c.stats.Puts++

	for c.size > c.maxSize && c.tail != nil && c.tail != e {
		oldest := c.tail
		c.unlink(oldest)
		delete(c.items, oldest.key)
		c.size -= oldest.weight
		c.stats.Evictions++
		*removed = append(*removed, removal[K, V]{oldest.key, oldest.value})
	}
	return true
}

// sameValue 两个值是否为同一个可比较的值（例如同一个指针）
func sameValue[V any](a, b V) bool {
	av, bv := any(a), any(b)
	ta, tb := reflect.TypeOf(av), reflect.TypeOf(bv)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return av == bv
}

// Remove 删除条目，返回是否存在
func (c *Weighted[K, V]) Remove(key K) bool {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok {
		c.unlink(e)
		delete(c.items, key)
		c.size -= e.weight
	}
	c.mu.Unlock()

	if ok {
		c.notify([]removal[K, V]{{e.key, e.value}})
	}
	return ok
}

// EvictAll 清空缓存，对每个条目调用 onRemoved
func (c *Weighted[K, V]) EvictAll() {
	c.mu.Lock()
	removed := make([]removal[K, V], 0, len(c.items))
	for e := c.tail; e != nil; e = e.prev {
		removed = append(removed, removal[K, V]{e.key, e.value})
	}
	c.items = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
	c.size = 0
	c.mu.Unlock()

	c.notify(removed)
}

// Len 条目数
func (c *Weighted[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size 当前总权重
func (c *Weighted[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxSize 权重预算
func (c *Weighted[K, V]) MaxSize() int {
	return c.maxSize
}

// Keys 按最近使用到最久未使用的顺序返回所有键
func (c *Weighted[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for e := c.head; e != nil; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// Stats 返回统计快照
func (c *Weighted[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStats 清零统计
func (c *Weighted[K, V]) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

func (c *Weighted[K, V]) notify(removed []removal[K, V]) {
	if c.onRemoved == nil {
		return
	}
	for _, r := range removed {
		c.onRemoved(r.key, r.value)
	}
}

func (c *Weighted[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Weighted[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *Weighted[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}
