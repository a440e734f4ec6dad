package cache

import (
	"sync"
	"time"
)

// Memory 进程内缓存，未配置数据库时使用
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
}

// NewMemory 创建内存缓存，ttl 为 0 表示条目不过期
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
		ttl:     ttl,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if e.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return e.Value, nil
}

func (m *Memory) Store(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		TTL:       m.ttl,
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Len 当前条目数，测试用
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
