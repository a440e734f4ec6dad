package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// SessionSummary 研究会话摘要
type SessionSummary struct {
	ID         string
	Target     string
	Region     string
	Status     string
	Reason     string
	Score      float64
	Iterations int
	CostUSD    float64
	StartedAt  string
	FinishedAt string
}

// Report 最终报告详情
type Report struct {
	SessionID string
	Target    string
	Markdown  string
	HTML      string
	CreatedAt string
}

type ReportRepo interface {
	ListSessions(ctx context.Context, page, pageSize int) ([]*SessionSummary, int, error)
	GetSession(ctx context.Context, id string) (*SessionSummary, error)
	GetReport(ctx context.Context, sessionID string) (*Report, error)
}

type ReportUseCase struct {
	repo ReportRepo
	log  *log.Helper
}

func NewReportUseCase(repo ReportRepo, logger log.Logger) *ReportUseCase {
	return &ReportUseCase{repo: repo, log: log.NewHelper(logger)}
}

// List 分页列出历史研究会话
func (uc *ReportUseCase) List(ctx context.Context, page, pageSize int) ([]*SessionSummary, int, error) {
	return uc.repo.ListSessions(ctx, page, pageSize)
}

// Get 根据会话 ID 获取会话摘要
func (uc *ReportUseCase) Get(ctx context.Context, id string) (*SessionSummary, error) {
	return uc.repo.GetSession(ctx, id)
}

// GetReport 根据会话 ID 获取最终报告
func (uc *ReportUseCase) GetReport(ctx context.Context, sessionID string) (*Report, error) {
	return uc.repo.GetReport(ctx, sessionID)
}
