package service

import (
	"strconv"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/company_radar/app/display/internal/biz"
)

// DisplayService 历史会话与报告的只读查询服务
type DisplayService struct {
	ucReport *biz.ReportUseCase
	log      *log.Helper
}

func NewDisplayService(ucReport *biz.ReportUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		ucReport: ucReport,
		log:      log.NewHelper(logger),
	}
}

type listSessionsReply struct {
	Sessions []*biz.SessionSummary `json:"sessions"`
	Total    int                   `json:"total"`
}

// ListSessions GET /api/v1/sessions?page=1&page_size=10
func (s *DisplayService) ListSessions(ctx khttp.Context) error {
	q := ctx.Request().URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if pageSize < 1 {
		pageSize = 10
	}

	sessions, total, err := s.ucReport.List(ctx, page, pageSize)
	if err != nil {
		return err
	}
	return ctx.Result(200, &listSessionsReply{Sessions: sessions, Total: total})
}

// GetSession GET /api/v1/sessions/{id}
func (s *DisplayService) GetSession(ctx khttp.Context) error {
	var in struct {
		ID string `json:"id"`
	}
	if err := ctx.BindVars(&in); err != nil {
		return err
	}

	session, err := s.ucReport.Get(ctx, in.ID)
	if err != nil {
		return err
	}
	return ctx.Result(200, session)
}

// GetReport GET /api/v1/sessions/{id}/report
func (s *DisplayService) GetReport(ctx khttp.Context) error {
	var in struct {
		ID string `json:"id"`
	}
	if err := ctx.BindVars(&in); err != nil {
		return err
	}

	report, err := s.ucReport.GetReport(ctx, in.ID)
	if err != nil {
		return err
	}
	return ctx.Result(200, report)
}

// GetReportHTML GET /api/v1/sessions/{id}/report/html 直接渲染 HTML 页面
func (s *DisplayService) GetReportHTML(ctx khttp.Context) error {
	var in struct {
		ID string `json:"id"`
	}
	if err := ctx.BindVars(&in); err != nil {
		return err
	}

	report, err := s.ucReport.GetReport(ctx, in.ID)
	if err != nil {
		return err
	}
	ctx.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = ctx.Response().Write([]byte(report.HTML))
	return err
}
