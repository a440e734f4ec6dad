package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

func doneSession() *model.ResearchSession {
	return &model.ResearchSession{
		ID:     "s-1",
		Target: model.ResearchTarget{Identifier: "Acme Corp"},
		Status: model.StatusDone,
		Reason: model.ReasonThresholdMet,
		Iterations: []*model.Iteration{
			{
				Index: 1,
				Documents: []model.SourceDocument{
					{URL: "http://a.com/1", Title: "财报新闻", Provider: "tavily"},
					{URL: "http://b.com/2", Title: "行业分析", Provider: "tavily"},
				},
				Sections: map[model.Facet]*model.AnalysisSection{
					model.FacetFinancial: {
						Facet:    model.FacetFinancial,
						Summary:  "2024 年营收 $5.2 billion",
						Findings: map[string]string{"revenue": "$5.2 billion"},
					},
					model.FacetSynthesis: {
						Facet:   model.FacetSynthesis,
						Summary: "整体经营稳健",
					},
				},
				Assessment: &model.QualityAssessment{Score: 88},
				CostUSD:    0.12,
				Elapsed:    90 * time.Second,
			},
		},
	}
}

func TestAssembleOrderAndPlaceholders(t *testing.T) {
	rep := Assemble(doneSession())

	if len(rep.Sections) != len(model.AnalysisFacets) {
		t.Fatalf("Sections len = %d, want %d", len(rep.Sections), len(model.AnalysisFacets))
	}
	// 固定维度顺序
	for i, f := range model.AnalysisFacets {
		if rep.Sections[i].Facet != f {
			t.Errorf("第 %d 节维度 = %v, want %v", i, rep.Sections[i].Facet, f)
		}
	}
	// 缺失维度以占位说明补齐
	if !strings.Contains(rep.Sections[1].Summary, "未能产出") {
		t.Errorf("缺失维度应有占位说明: %q", rep.Sections[1].Summary)
	}
	if rep.Metrics.Score != 88 || rep.Metrics.Iterations != 1 || rep.Metrics.SourceCount != 2 {
		t.Errorf("Metrics = %+v", rep.Metrics)
	}
}

func TestAssembleDedupsSources(t *testing.T) {
	s := doneSession()
	s.Iterations = append(s.Iterations, &model.Iteration{
		Index: 2,
		Documents: []model.SourceDocument{
			{URL: "http://a.com/1", Title: "财报新闻", Provider: "tavily"},
			{URL: "http://c.com/3", Title: "补查结果", Provider: "duckduckgo"},
		},
	})

	rep := Assemble(s)
	if len(rep.Sources) != 3 {
		t.Errorf("来源应按 URL 去重: %d, want 3", len(rep.Sources))
	}
}

func TestMarkdownRendering(t *testing.T) {
	md := Assemble(doneSession()).Markdown()

	if !strings.Contains(md, "# 公司研究报告：Acme Corp") {
		t.Error("缺少标题")
	}
	if !strings.Contains(md, "## 财务表现") {
		t.Error("缺少维度标题")
	}
	if !strings.Contains(md, "- **revenue**: $5.2 billion") {
		t.Error("缺少 findings 列表")
	}
	if !strings.Contains(md, "质量评分: 88.0/100") {
		t.Errorf("缺少指标尾注:\n%s", md)
	}
	if !strings.Contains(md, "[财报新闻](http://a.com/1)") {
		t.Error("缺少参考来源")
	}
}

func TestMarkdownDegradedNote(t *testing.T) {
	s := doneSession()
	s.Iterations[0].Sections[model.FacetESG] = &model.AnalysisSection{
		Facet:    model.FacetESG,
		Summary:  "模板产出",
		Degraded: true,
	}

	md := Assemble(s).Markdown()
	if !strings.Contains(md, "模板降级产出") {
		t.Error("降级维度应有注记")
	}
}

func TestRenderHTML(t *testing.T) {
	rep := Assemble(doneSession())

	var buf bytes.Buffer
	if err := rep.RenderHTML(&buf); err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Acme Corp") {
		t.Error("HTML 缺少目标名")
	}
	if !strings.Contains(html, "财务表现") {
		t.Error("HTML 缺少维度标题")
	}
	if !strings.Contains(html, "http://a.com/1") {
		t.Error("HTML 缺少参考来源")
	}
}
