package biz

import (
	"context"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
)

// mockReportRepo 模拟报表仓库
type mockReportRepo struct{}

func (m *mockReportRepo) ListSessions(ctx context.Context, page, pageSize int) ([]*SessionSummary, int, error) {
	return []*SessionSummary{{ID: "s-1", Target: "Acme Corp", Score: 88}}, 1, nil
}

func (m *mockReportRepo) GetSession(ctx context.Context, id string) (*SessionSummary, error) {
	return &SessionSummary{ID: id}, nil
}

func (m *mockReportRepo) GetReport(ctx context.Context, sessionID string) (*Report, error) {
	return &Report{SessionID: sessionID, Markdown: "# report"}, nil
}

func TestReportUseCase_List(t *testing.T) {
	repo := &mockReportRepo{}
	logger := log.DefaultLogger
	uc := NewReportUseCase(repo, logger)

	sessions, total, err := uc.List(context.Background(), 1, 10)
	if err != nil {
		t.Errorf("List() error = %v", err)
		return
	}
	if total != 1 {
		t.Errorf("List() total = %v, want 1", total)
	}
	if len(sessions) != 1 || sessions[0].Target != "Acme Corp" {
		t.Errorf("List() sessions = %v", sessions)
	}
}

func TestReportUseCase_GetReport(t *testing.T) {
	uc := NewReportUseCase(&mockReportRepo{}, log.DefaultLogger)

	rep, err := uc.GetReport(context.Background(), "s-42")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if rep.SessionID != "s-42" {
		t.Errorf("GetReport() session id = %v, want s-42", rep.SessionID)
	}
}
