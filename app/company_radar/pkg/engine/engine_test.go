package engine

import (
	"context"
	"testing"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/budget"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/planner"
)

// fakeRetriever 每轮返回预置文档
type fakeRetriever struct {
	batches [][]model.SourceDocument
	calls   int
	queries [][]model.SearchQuery
}

func (f *fakeRetriever) Retrieve(ctx context.Context, queries []model.SearchQuery) []model.SourceDocument {
	f.queries = append(f.queries, queries)
	var docs []model.SourceDocument
	if f.calls < len(f.batches) {
		docs = f.batches[f.calls]
	}
	f.calls++
	return docs
}

// fakeAnalyzer 全维度返回同一份产出
type fakeAnalyzer struct{ calls int }

func (f *fakeAnalyzer) RunAll(ctx context.Context, target model.ResearchTarget, docs []model.SourceDocument, prior map[model.Facet]*model.AnalysisSection) map[model.Facet]*model.AnalysisSection {
	f.calls++
	sections := make(map[model.Facet]*model.AnalysisSection)
	for _, facet := range model.AnalysisFacets {
		sections[facet] = &model.AnalysisSection{Facet: facet, Summary: "营收 $5.2 billion"}
	}
	return sections
}

// fakeAssessor 按轮次返回预置评估
type fakeAssessor struct {
	results []*model.QualityAssessment
	calls   int
}

func (f *fakeAssessor) Assess(target model.ResearchTarget, sections map[model.Facet]*model.AnalysisSection) *model.QualityAssessment {
	r := f.results[f.calls]
	if f.calls < len(f.results)-1 {
		f.calls++
	}
	return r
}

type fakeSaver struct{ saved []*model.ResearchSession }

func (f *fakeSaver) SaveSession(s *model.ResearchSession) error {
	f.saved = append(f.saved, s)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Research: config.ResearchConfig{
			QualityThreshold:   85,
			MaxIterations:      2,
			NumSearchQueries:   5,
			MaxResearchSeconds: 600,
			Weights:            config.RubricWeights{Completeness: 40, Accuracy: 30, Depth: 30},
			FacetFloor:         0.6,
		},
	}
}

func newTestEngine(cfg *config.Config, r retriever, a analyzerRunner, q qualityAssessor, s sessionSaver) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    s,
		planner:  planner.New(cfg.Research.NumSearchQueries),
		assessor: q,
	}
	e.newTracker = func() *budget.Tracker {
		return budget.NewTracker(0, time.Duration(cfg.Research.MaxResearchSeconds)*time.Second, 0, 0, 0)
	}
	e.newRetriever = func(*budget.Tracker) retriever { return r }
	e.newAnalyzer = func(*budget.Tracker) analyzerRunner { return a }
	return e
}

func docBatch(urls ...string) []model.SourceDocument {
	var docs []model.SourceDocument
	for _, u := range urls {
		docs = append(docs, model.SourceDocument{URL: u, Fingerprint: model.Fingerprint(u)})
	}
	return docs
}

func TestRunThresholdMetFirstIteration(t *testing.T) {
	r := &fakeRetriever{batches: [][]model.SourceDocument{docBatch("http://a.com/1")}}
	q := &fakeAssessor{results: []*model.QualityAssessment{{Score: 90, Passed: true}}}
	saver := &fakeSaver{}
	e := newTestEngine(testConfig(), r, &fakeAnalyzer{}, q, saver)

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: "Acme Corp"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Status != model.StatusDone || session.Reason != model.ReasonThresholdMet {
		t.Errorf("终态 = %v/%v, want done/threshold_met", session.Status, session.Reason)
	}
	if len(session.Iterations) != 1 {
		t.Errorf("迭代次数 = %d, want 1", len(session.Iterations))
	}
	if len(saver.saved) != 1 {
		t.Errorf("会话应落库 1 次，实际 %d 次", len(saver.saved))
	}
}

func TestRunGapFillSecondIterationPasses(t *testing.T) {
	r := &fakeRetriever{batches: [][]model.SourceDocument{
		docBatch("http://a.com/1"),
		docBatch("http://b.com/2"),
	}}
	q := &fakeAssessor{results: []*model.QualityAssessment{
		{Score: 60, Passed: false, Gaps: []model.MissingInformationGap{
			{Facet: model.FacetESG, SuggestedQuery: "Acme Corp ESG sustainability report"},
			{Facet: model.FacetRisk, SuggestedQuery: "Acme Corp risk factors"},
		}},
		{Score: 88, Passed: true},
	}}
	e := newTestEngine(testConfig(), r, &fakeAnalyzer{}, q, nil)

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: "Acme Corp"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Reason != model.ReasonThresholdMet {
		t.Errorf("终止原因 = %v, want threshold_met", session.Reason)
	}
	if len(session.Iterations) != 2 {
		t.Fatalf("迭代次数 = %d, want 2", len(session.Iterations))
	}
	// 第二轮只发补查查询
	second := r.queries[1]
	if len(second) != 2 {
		t.Fatalf("补查查询数 = %d, want 2", len(second))
	}
	if second[0].Text != "Acme Corp ESG sustainability report" {
		t.Errorf("补查查询 = %q", second[0].Text)
	}
}

func TestRunMaxIterations(t *testing.T) {
	r := &fakeRetriever{batches: [][]model.SourceDocument{
		docBatch("http://a.com/1"),
		docBatch("http://b.com/2"),
		docBatch("http://c.com/3"),
	}}
	below := &model.QualityAssessment{Score: 50, Passed: false, Gaps: []model.MissingInformationGap{
		{Facet: model.FacetESG, SuggestedQuery: "Acme Corp ESG report"},
		{Facet: model.FacetRisk, SuggestedQuery: "Acme Corp risk factors"},
	}}
	q := &fakeAssessor{results: []*model.QualityAssessment{below, below, below}}
	e := newTestEngine(testConfig(), r, &fakeAnalyzer{}, q, nil)

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: "Acme Corp"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Status != model.StatusDone || session.Reason != model.ReasonMaxIterations {
		t.Errorf("终态 = %v/%v, want done/max_iterations", session.Status, session.Reason)
	}
	if len(session.Iterations) != 2 {
		t.Errorf("迭代次数 = %d, want 2 (max_iterations)", len(session.Iterations))
	}
}

func TestRunNoNewGapQueriesEndsEarly(t *testing.T) {
	r := &fakeRetriever{batches: [][]model.SourceDocument{docBatch("http://a.com/1")}}
	// 有缺口但建议查询与已发出的重复，补查规划产不出新查询
	q := &fakeAssessor{results: []*model.QualityAssessment{
		{Score: 50, Passed: false, Gaps: nil},
	}}
	e := newTestEngine(testConfig(), r, &fakeAnalyzer{}, q, nil)

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: "Acme Corp"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Reason != model.ReasonMaxIterations {
		t.Errorf("终止原因 = %v, want max_iterations", session.Reason)
	}
	if len(session.Iterations) != 1 {
		t.Errorf("迭代次数 = %d, want 1", len(session.Iterations))
	}
}

func TestRunBudgetExceeded(t *testing.T) {
	cfg := testConfig()
	r := &fakeRetriever{batches: [][]model.SourceDocument{docBatch("http://a.com/1")}}
	q := &fakeAssessor{results: []*model.QualityAssessment{
		{Score: 50, Passed: false, Gaps: []model.MissingInformationGap{{Facet: model.FacetESG, SuggestedQuery: "Acme Corp ESG"}}},
	}}
	e := newTestEngine(cfg, r, &fakeAnalyzer{}, q, nil)
	// 时间上限立即超出
	e.newTracker = func() *budget.Tracker {
		return budget.NewTracker(0, time.Nanosecond, 0, 0, 0)
	}

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: "Acme Corp"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Status != model.StatusDone || session.Reason != model.ReasonBudgetExceeded {
		t.Errorf("终态 = %v/%v, want done/budget_exceeded", session.Status, session.Reason)
	}
}

func TestRunInvalidTarget(t *testing.T) {
	e := newTestEngine(testConfig(), &fakeRetriever{}, &fakeAnalyzer{}, &fakeAssessor{}, nil)

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: ""}})
	if err == nil {
		t.Fatal("空目标应报错")
	}
	if session != nil {
		t.Error("非法目标不应创建会话")
	}
}

func TestRunFatalWhenNoDocuments(t *testing.T) {
	r := &fakeRetriever{} // 所有查询均无结果
	q := &fakeAssessor{results: []*model.QualityAssessment{{Score: 0}}}
	saver := &fakeSaver{}
	e := newTestEngine(testConfig(), r, &fakeAnalyzer{}, q, saver)

	session, err := e.Run(context.Background(), RunOptions{Target: model.ResearchTarget{Identifier: "Acme Corp"}})
	if err == nil {
		t.Fatal("首轮零文档应报错")
	}
	if session.Status != model.StatusFailed || session.Reason != model.ReasonFatalError {
		t.Errorf("终态 = %v/%v, want failed/fatal_error", session.Status, session.Reason)
	}
	if len(saver.saved) != 1 {
		t.Error("失败会话也应落库")
	}
}
