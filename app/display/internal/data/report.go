package data

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/company_radar/app/display/internal/biz"
)

type reportRepo struct {
	data *Data
	sb   sq.StatementBuilderType
	log  *log.Helper
}

func NewReportRepo(data *Data, logger log.Logger) biz.ReportRepo {
	return &reportRepo{
		data: data,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		log:  log.NewHelper(logger),
	}
}

func (r *reportRepo) ListSessions(ctx context.Context, page, pageSize int) ([]*biz.SessionSummary, int, error) {
	offset := (page - 1) * pageSize

	query, args, err := r.sb.
		Select("id", "target", "region", "status", "reason", "score", "iterations", "cost_usd", "started_at", "finished_at").
		From("research_sessions").
		OrderBy("started_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.data.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []*biz.SessionSummary
	for rows.Next() {
		var s biz.SessionSummary
		var startedAt time.Time
		var finishedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Target, &s.Region, &s.Status, &s.Reason,
			&s.Score, &s.Iterations, &s.CostUSD, &startedAt, &finishedAt); err != nil {
			return nil, 0, err
		}
		s.StartedAt = startedAt.Format("2006-01-02 15:04:05")
		if finishedAt.Valid {
			s.FinishedAt = finishedAt.Time.Format("2006-01-02 15:04:05")
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("research_sessions").ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := r.data.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

func (r *reportRepo) GetSession(ctx context.Context, id string) (*biz.SessionSummary, error) {
	query, args, err := r.sb.
		Select("id", "target", "region", "status", "reason", "score", "iterations", "cost_usd", "started_at", "finished_at").
		From("research_sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s biz.SessionSummary
	var startedAt time.Time
	var finishedAt sql.NullTime
	err = r.data.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Target, &s.Region,
		&s.Status, &s.Reason, &s.Score, &s.Iterations, &s.CostUSD, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("SESSION_NOT_FOUND", "session not found")
	}
	if err != nil {
		return nil, err
	}
	s.StartedAt = startedAt.Format("2006-01-02 15:04:05")
	if finishedAt.Valid {
		s.FinishedAt = finishedAt.Time.Format("2006-01-02 15:04:05")
	}
	return &s, nil
}

func (r *reportRepo) GetReport(ctx context.Context, sessionID string) (*biz.Report, error) {
	query, args, err := r.sb.
		Select("session_id", "target", "markdown", "html", "created_at").
		From("research_reports").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rep biz.Report
	var createdAt time.Time
	err = r.data.db.QueryRowContext(ctx, query, args...).Scan(&rep.SessionID, &rep.Target,
		&rep.Markdown, &rep.HTML, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("REPORT_NOT_FOUND", "report not found")
	}
	if err != nil {
		return nil, err
	}
	rep.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	return &rep, nil
}
