package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// Storage 研究会话与报告的持久化层
type Storage struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewStorage 建立数据库连接并确保表结构存在
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Storage) migrate() error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS research_sessions (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			iterations INT NOT NULL DEFAULT 0,
			cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
			payload JSONB NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS research_reports (
			session_id TEXT PRIMARY KEY REFERENCES research_sessions(id),
			target TEXT NOT NULL,
			markdown TEXT NOT NULL,
			html TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, ddl := range ddls {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// DB 暴露底层连接供缓存层复用
func (s *Storage) DB() *sql.DB { return s.db }

func (s *Storage) Close() error { return s.db.Close() }

// SaveSession 整体落库（UPSERT），payload 为完整会话 JSON
func (s *Storage) SaveSession(session *model.ResearchSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var score float64
	if a := session.FinalAssessment(); a != nil {
		score = a.Score
	}
	var cost float64
	for _, it := range session.Iterations {
		cost += it.CostUSD
	}

	query, args, err := s.sb.
		Insert("research_sessions").
		Columns("id", "target", "region", "status", "reason", "score", "iterations", "cost_usd", "payload", "started_at", "finished_at").
		Values(session.ID, session.Target.Identifier, session.Target.Region, session.Status, session.Reason,
			score, len(session.Iterations), cost, payload, session.StartedAt, nullableTime(session.FinishedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, reason = EXCLUDED.reason, score = EXCLUDED.score,
			iterations = EXCLUDED.iterations, cost_usd = EXCLUDED.cost_usd,
			payload = EXCLUDED.payload, finished_at = EXCLUDED.finished_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	return err
}

// SaveReport 保存装配完成的最终报告
func (s *Storage) SaveReport(sessionID, target, markdown, html string) error {
	query, args, err := s.sb.
		Insert("research_reports").
		Columns("session_id", "target", "markdown", "html", "created_at").
		Values(sessionID, target, markdown, html, time.Now()).
		Suffix(`ON CONFLICT (session_id) DO UPDATE SET
			markdown = EXCLUDED.markdown, html = EXCLUDED.html, created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	return err
}

// GetSession 按 ID 取回完整会话
func (s *Storage) GetSession(id string) (*model.ResearchSession, error) {
	query, args, err := s.sb.
		Select("payload").
		From("research_sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var payload []byte
	if err := s.db.QueryRow(query, args...).Scan(&payload); err != nil {
		return nil, err
	}
	var session model.ResearchSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
