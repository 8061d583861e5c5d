package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"powerball-bot/internal/logger"
)

// ErrCacheMiss 键不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

type memoryItem struct {
	data      []byte
	expiresAt time.Time
	createdAt time.Time
}

func (item *memoryItem) expired(now time.Time) bool {
	return now.After(item.expiresAt)
}

// MemoryCache 带过期时间与容量上限的内存缓存。值以JSON保存，读取时复制到目标对象。
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*memoryItem
	maxSize int
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache 创建内存缓存，cleanupInterval 大于0时启动后台清理
func NewMemoryCache(maxSize int, cleanupInterval time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	m := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: maxSize,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go m.startCleanup(cleanupInterval)
	}

	logger.Infof("Memory cache initialized (max %d items)", maxSize)
	return m
}

// Set 设置缓存值
func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxSize {
		m.evictOldestLocked()
	}
	m.items[key] = &memoryItem{data: data, expiresAt: now.Add(ttl), createdAt: now}

	logger.Debugf("Memory cache set: %s", key)
	return nil
}

// Get 读取缓存值到 dest
func (m *MemoryCache) Get(key string, dest interface{}) error {
	m.mu.RLock()
	item, exists := m.items[key]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if item.expired(m.now()) {
		m.Delete(key)
		return fmt.Errorf("%w: %s expired", ErrCacheMiss, key)
	}

	if err := json.Unmarshal(item.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value %s: %w", key, err)
	}

	logger.Debugf("Memory cache hit: %s", key)
	return nil
}

// Delete 删除缓存
func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// DeletePattern 删除匹配 glob 模式的缓存，返回删除数量
func (m *MemoryCache) DeletePattern(pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.items {
		if matched, _ := path.Match(pattern, key); matched {
			delete(m.items, key)
			count++
		}
	}

	if count > 0 {
		logger.Debugf("Memory cache deleted by pattern: %s, count: %d", pattern, count)
	}
	return count
}

// Exists 检查缓存是否存在且未过期
func (m *MemoryCache) Exists(key string) bool {
	m.mu.RLock()
	item, exists := m.items[key]
	m.mu.RUnlock()
	return exists && !item.expired(m.now())
}

// GetTTL 获取剩余过期时间
func (m *MemoryCache) GetTTL(key string) (time.Duration, error) {
	m.mu.RLock()
	item, exists := m.items[key]
	m.mu.RUnlock()

	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	remaining := item.expiresAt.Sub(m.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Clear 清空所有缓存
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	m.items = make(map[string]*memoryItem)
	m.mu.Unlock()
	logger.Debug("Memory cache cleared")
}

// Size 当前缓存项数量（包含尚未清理的过期项）
func (m *MemoryCache) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Stats 获取缓存统计信息
func (m *MemoryCache) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	valid, expired := 0, 0
	for _, item := range m.items {
		if item.expired(now) {
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
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *MemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.stopCh:
			return
		}
	}
}

// cleanupExpired 清理过期的缓存项，返回清理数量
func (m *MemoryCache) cleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	count := 0
	for key, item := range m.items {
		if item.expired(now) {
			delete(m.items, key)
			count++
		}
	}

	if count > 0 {
		logger.Debugf("Memory cache cleanup: removed %d expired items", count)
	}
	return count
}

// evictOldestLocked 淘汰最早写入的缓存项，调用方需持有写锁
func (m *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range m.items {
		if oldestKey == "" || item.createdAt.Before(oldest) {
			oldestKey = key
			oldest = item.createdAt
		}
	}
	if oldestKey != "" {
		delete(m.items, oldestKey)
		logger.Debugf("Memory cache evicted oldest: %s", oldestKey)
	}
}
