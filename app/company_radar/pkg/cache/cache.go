package cache

import (
	"errors"
	"time"
)

// ErrMiss 缓存未命中或条目已过期
var ErrMiss = errors.New("cache miss")

// Entry 缓存条目，value 为 JSON 序列化后的内容
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration // 0 表示永不过期
}

// Expired 判断条目在 now 时刻是否已过期
func (e *Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// Store 指纹键值存储。实现必须支持并发读写
type Store interface {
	// Get 返回未过期的条目内容；未命中或已过期返回 ErrMiss
	Get(key string) ([]byte, error)
	// Store 写入条目（覆盖同键旧值）
	Store(key string, value []byte) error
	// Close 释放底层资源
	Close() error
}

// ShouldRecompute 判断是否需要重新计算：仅当存在未过期的同键条目时返回 false
func ShouldRecompute(s Store, key string) bool {
	if s == nil {
		return true
	}
	_, err := s.Get(key)
	return err != nil
}
