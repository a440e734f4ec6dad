package analyzer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/cache"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/llm"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/retry"
)

// mockLLM 模拟对话模型
type mockLLM struct {
	content string
	err     error
	calls   atomic.Int32
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.content, PromptTokens: 100, CompletionTokens: 50}, nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, Delay: time.Millisecond, Backoff: 1}
}

func sampleDocs() []model.SourceDocument {
	return []model.SourceDocument{
		{
			URL:         "http://a.com/1",
			Title:       "Acme Corp revenue hits $5.2 billion in 2024",
			Snippet:     "Acme Corp reported revenue of $5.2 billion, up 12% from 2023.",
			Facet:       model.QueryFinancial,
			Fingerprint: model.Fingerprint("doc-1"),
		},
		{
			URL:         "http://b.com/2",
			Title:       "Acme Corp company overview",
			Snippet:     "Acme Corp is a manufacturer founded in 1990.",
			Facet:       model.QueryOverview,
			Fingerprint: model.Fingerprint("doc-2"),
		},
	}
}

const goodJSON = `{"summary": "营收持续增长", "findings": {"revenue": "$5.2 billion"}, "confidence": 0.8}`

func TestRunAllCoversAllFacets(t *testing.T) {
	a := New(&mockLLM{content: goodJSON}, nil, nil, nil, fastPolicy())

	sections := a.RunAll(context.Background(), model.ResearchTarget{Identifier: "Acme Corp"}, sampleDocs(), nil)
	if len(sections) != len(model.AnalysisFacets) {
		t.Fatalf("RunAll() len = %d, want %d", len(sections), len(model.AnalysisFacets))
	}
	for _, f := range model.AnalysisFacets {
		sec := sections[f]
		if sec == nil {
			t.Fatalf("维度 [%s] 无产出", f)
		}
		if sec.Facet != f {
			t.Errorf("维度标签 = %v, want %v", sec.Facet, f)
		}
		if sec.Degraded {
			t.Errorf("维度 [%s] 不应降级", f)
		}
	}
}

func TestRunAllDegradesOnLLMFailure(t *testing.T) {
	// 鉴权失败不可重试，每个维度都应降级为模板产出
	m := &mockLLM{err: errors.New("401 unauthorized")}
	a := New(m, nil, nil, nil, fastPolicy())

	sections := a.RunAll(context.Background(), model.ResearchTarget{Identifier: "Acme Corp"}, sampleDocs(), nil)
	if len(sections) != len(model.AnalysisFacets) {
		t.Fatalf("RunAll() len = %d, want %d", len(sections), len(model.AnalysisFacets))
	}
	for f, sec := range sections {
		if !sec.Degraded {
			t.Errorf("维度 [%s] 应为降级产出", f)
		}
		if sec.Empty() {
			t.Errorf("降级产出不应为空 [%s]", f)
		}
	}
}

func TestGenerateRetriesMalformedJSON(t *testing.T) {
	m := &mockLLM{content: "not json at all"}
	a := New(m, nil, nil, nil, fastPolicy())

	_, err := a.generate(context.Background(), model.FacetFinancial, "prompt", sampleDocs())
	if err == nil {
		t.Fatal("generate() error = nil, want AnalysisError")
	}
	var ae *model.AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("generate() error 类型 = %T", err)
	}
	if m.calls.Load() != 2 {
		t.Errorf("格式错误的输出应重试，调用次数 = %d, want 2", m.calls.Load())
	}
}

func TestAnalyzeFacetCacheHit(t *testing.T) {
	m := &mockLLM{content: goodJSON}
	store := cache.NewMemory(time.Hour)
	a := New(m, nil, nil, store, fastPolicy())

	target := model.ResearchTarget{Identifier: "Acme Corp"}
	docs := sampleDocs()

	first := a.analyzeFacet(context.Background(), target, model.FacetFinancial, docs, nil)
	second := a.analyzeFacet(context.Background(), target, model.FacetFinancial, docs, nil)

	if first.Summary != second.Summary {
		t.Errorf("缓存结果不一致: %q vs %q", first.Summary, second.Summary)
	}
	if m.calls.Load() != 1 {
		t.Errorf("相同输入应命中缓存，LLM 调用次数 = %d", m.calls.Load())
	}
}

func TestTemplateExtract(t *testing.T) {
	sec := templateExtract(model.ResearchTarget{Identifier: "Acme Corp"}, model.FacetFinancial, sampleDocs())

	if !sec.Degraded {
		t.Error("模板产出应带 degraded 标记")
	}
	if sec.Confidence != degradedConfidence {
		t.Errorf("Confidence = %v, want %v", sec.Confidence, degradedConfidence)
	}
	if sec.Empty() {
		t.Fatal("模板产出不应为空")
	}
	if _, ok := sec.Findings["numeric_mentions"]; !ok {
		t.Errorf("应提取到数字事实: %v", sec.Findings)
	}
	if _, ok := sec.Findings["date_mentions"]; !ok {
		t.Errorf("应提取到日期: %v", sec.Findings)
	}
}

func TestTemplateExtractNoDocs(t *testing.T) {
	sec := templateExtract(model.ResearchTarget{Identifier: "Acme Corp"}, model.FacetESG, nil)

	if sec.Empty() {
		t.Error("无文档时模板产出仍不应为空")
	}
	if !sec.Degraded {
		t.Error("模板产出应带 degraded 标记")
	}
}

func TestScopeDocuments(t *testing.T) {
	docs := sampleDocs()

	scoped := scopeDocuments(model.FacetFinancial, docs)
	if len(scoped) != 2 {
		// financial 接受 financial 与 overview 标签
		t.Errorf("scopeDocuments(financial) len = %d, want 2", len(scoped))
	}

	scoped = scopeDocuments(model.FacetCompetitive, docs)
	// competitive 只接受 market/product，均未命中时退回全部文档
	if len(scoped) != len(docs) {
		t.Errorf("无命中时应退回全部文档: %d", len(scoped))
	}
}

func TestBuildGraphDependencies(t *testing.T) {
	tasks := buildGraph()
	if len(tasks) != len(model.AnalysisFacets) {
		t.Fatalf("buildGraph() len = %d, want %d", len(tasks), len(model.AnalysisFacets))
	}
	for _, task := range tasks {
		switch task.facet {
		case model.FacetThesis, model.FacetSynthesis:
			if len(task.deps) != len(model.IndependentFacets) {
				t.Errorf("维度 [%s] 依赖数 = %d, want %d", task.facet, len(task.deps), len(model.IndependentFacets))
			}
		default:
			if len(task.deps) != 0 {
				t.Errorf("独立维度 [%s] 不应有依赖", task.facet)
			}
		}
	}
}
