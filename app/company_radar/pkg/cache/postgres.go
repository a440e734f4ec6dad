package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
)

// Postgres 持久化缓存，跨运行复用分析与检索结果
type Postgres struct {
	db  *sql.DB
	ttl time.Duration
	sb  sq.StatementBuilderType
}

// NewPostgres 基于已有连接创建持久化缓存并确保表存在
func NewPostgres(db *sql.DB, ttl time.Duration) (*Postgres, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("init cache table: %w", err)
	}
	return &Postgres{
		db:  db,
		ttl: ttl,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

var _ Store = (*Postgres)(nil)

func (p *Postgres) Get(key string) ([]byte, error) {
	query, args, err := p.sb.
		Select("value", "created_at").
		From("cache_entries").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var value []byte
	var createdAt time.Time
	err = p.db.QueryRow(query, args...).Scan(&value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		// 持久化存储损坏时丢弃对应条目并继续，不让缓存问题拖垮会话
		logger.Log.Warnf("缓存条目读取失败，按未命中处理并删除 [%s]: %v", key, err)
		p.delete(key)
		return nil, ErrMiss
	}

	e := Entry{Key: key, Value: value, CreatedAt: createdAt, TTL: p.ttl}
	if e.Expired(time.Now()) {
		p.delete(key)
		return nil, ErrMiss
	}
	return value, nil
}

func (p *Postgres) Store(key string, value []byte) error {
	query, args, err := p.sb.
		Insert("cache_entries").
		Columns("key", "value", "created_at").
		Values(key, value, time.Now()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, created_at = EXCLUDED.created_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.Exec(query, args...)
	return err
}

func (p *Postgres) Close() error { return nil } // 连接由 storage 层统一管理

func (p *Postgres) delete(key string) {
	query, args, err := p.sb.Delete("cache_entries").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return
	}
	if _, err := p.db.Exec(query, args...); err != nil {
		logger.Log.Warnf("缓存条目删除失败 [%s]: %v", key, err)
	}
}
