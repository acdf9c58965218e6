package cache

import (
	"sync"
	"time"
)

// State 按轮次计算的缓存状态
type State int

const (
	StateMiss State = iota
	StateValid
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	default:
		return "miss"
	}
}

// RoundEntry 某一轮生成的号码
type RoundEntry struct {
	Numbers   []int
	Round     int64
	CreatedAt time.Time
}

// RoundCache 以轮次而非时间计算有效期的号码缓存
type RoundCache struct {
	mu      sync.RWMutex
	entries map[string]RoundEntry
}

// NewRoundCache 创建轮次缓存
func NewRoundCache() *RoundCache {
	return &RoundCache{entries: make(map[string]RoundEntry)}
}

// Lookup 查询缓存；interval为0时永不过期，轮次回退视为过期
func (c *RoundCache) Lookup(key string, round int64, interval int) ([]int, State) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, StateMiss
	}
	if interval > 0 {
		elapsed := round - entry.Round
		if elapsed < 0 || elapsed >= int64(interval) {
			return nil, StateExpired
		}
	}
	return append([]int(nil), entry.Numbers...), StateValid
}

// Store 写入缓存
func (c *RoundCache) Store(key string, numbers []int, round int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = RoundEntry{
		Numbers:   append([]int(nil), numbers...),
		Round:     round,
		CreatedAt: time.Now(),
	}
}

// Entry 原始缓存项
func (c *RoundCache) Entry(key string) (RoundEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if ok {
		e.Numbers = append([]int(nil), e.Numbers...)
	}
	return e, ok
}

// Invalidate 删除单个key
func (c *RoundCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePattern 删除匹配的key（支持末尾*）
func (c *RoundCache) InvalidatePattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.entries {
		if matchPattern(pattern, key) {
			delete(c.entries, key)
			count++
		}
	}
	return count
}

// Clear 清空缓存
func (c *RoundCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]RoundEntry)
}

// Len 缓存项数量
func (c *RoundCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
