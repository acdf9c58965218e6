package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"keno-bot/internal/logger"
)

// MemoryItem 内存缓存项
type MemoryItem struct {
	Value     interface{}
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired 检查是否过期
func (item *MemoryItem) IsExpired() bool {
	return time.Now().After(item.ExpiresAt)
}

// MemoryCache 带TTL和容量上限的内存缓存
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*MemoryItem
	maxSize int
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache 创建新的内存缓存并启动后台清理
func NewMemoryCache(maxSize int, cleanupInterval time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	cache := &MemoryCache{
		items:   make(map[string]*MemoryItem),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go cache.startCleanup(cleanupInterval)
	}

	logger.Debugf("Memory cache initialized (max %d items)", maxSize)
	return cache
}

// Set 设置缓存值，满时淘汰最旧的一项
func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxSize {
		m.evictOldestLocked()
	}
	m.items[key] = &MemoryItem{Value: value, ExpiresAt: now.Add(ttl), CreatedAt: now}
	logger.Debugf("Memory cache set: %s", key)
}

// Get 获取缓存值，未命中或过期返回false
func (m *MemoryCache) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	item, exists := m.items[key]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if item.IsExpired() {
		m.Delete(key)
		return nil, false
	}
	return item.Value, true
}

// Delete 删除缓存
func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// DeletePattern 删除匹配模式的缓存，返回删除数量
func (m *MemoryCache) DeletePattern(pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.items {
		if matchPattern(pattern, key) {
			delete(m.items, key)
			count++
		}
	}
	if count > 0 {
		logger.Debugf("Memory cache deleted by pattern: %s, count: %d", pattern, count)
	}
	return count
}

// GetTTL 获取缓存剩余过期时间
func (m *MemoryCache) GetTTL(key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[key]
	if !exists {
		return 0, fmt.Errorf("cache key not found: %s", key)
	}
	if item.IsExpired() {
		return 0, nil
	}
	return time.Until(item.ExpiresAt), nil
}

// Clear 清空所有缓存
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*MemoryItem)
}

// Size 获取缓存项数量
func (m *MemoryCache) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Stats 获取缓存统计信息
func (m *MemoryCache) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var valid, expired int
	for _, item := range m.items {
		if item.IsExpired() {
			expired++
		} else {
			valid++
		}
	}

	return map[string]interface{}{
		"total_size":    len(m.items),
		"valid_items":   valid,
		"expired_items": expired,
		"max_size":      m.maxSize,
	}
}

// Close 停止后台清理
func (m *MemoryCache) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *MemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.stop:
			return
		}
	}
}

// cleanupExpired 清理过期的缓存项
func (m *MemoryCache) cleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, item := range m.items {
		if item.IsExpired() {
			delete(m.items, key)
			count++
		}
	}
	if count > 0 {
		logger.Debugf("Memory cache cleanup: removed %d expired items", count)
	}
	return count
}

func (m *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	for key, item := range m.items {
		if oldestKey == "" || item.CreatedAt.Before(oldestTime) {
			oldestKey, oldestTime = key, item.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(m.items, oldestKey)
		logger.Debugf("Memory cache evicted oldest: %s", oldestKey)
	}
}

// matchPattern 支持"*"和末尾通配符的前缀匹配
func matchPattern(pattern, str string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == str
}
