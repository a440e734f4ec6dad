package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// 各维度在报告中的展示名
var facetTitles = map[model.Facet]string{
	model.FacetFinancial:   "财务表现",
	model.FacetMarket:      "市场地位",
	model.FacetESG:         "ESG",
	model.FacetBrand:       "品牌",
	model.FacetCompetitive: "竞争格局",
	model.FacetRisk:        "风险",
	model.FacetThesis:      "投资论点",
	model.FacetSynthesis:   "执行摘要",
}

// Metrics 报告尾部的运行指标
type Metrics struct {
	Score       float64
	Iterations  int
	Elapsed     time.Duration
	CostUSD     float64
	SourceCount int
}

// Report 装配完成的最终交付物
type Report struct {
	Target   string
	Sections []*model.AnalysisSection // 按固定维度顺序
	Sources  []model.SourceDocument   // 按 URL 去重
	Metrics  Metrics
}

// Assemble 从已结束的会话装配报告：各维度最新产出 + 去重来源 + 指标尾注。
// done 会话总能产出报告，缺失的维度以占位说明标注
func Assemble(session *model.ResearchSession) *Report {
	sections := session.CurrentSections()
	ordered := make([]*model.AnalysisSection, 0, len(model.AnalysisFacets))
	for _, f := range model.AnalysisFacets {
		if sec, ok := sections[f]; ok {
			ordered = append(ordered, sec)
		} else {
			ordered = append(ordered, &model.AnalysisSection{
				Facet:   f,
				Summary: "（本维度未能产出分析结果）",
			})
		}
	}

	sources := session.AllDocuments()

	var score float64
	if a := session.FinalAssessment(); a != nil {
		score = a.Score
	}
	var cost float64
	var elapsed time.Duration
	for _, it := range session.Iterations {
		cost += it.CostUSD
		elapsed += it.Elapsed
	}

	return &Report{
		Target:   session.Target.Identifier,
		Sections: ordered,
		Sources:  sources,
		Metrics: Metrics{
			Score:       score,
			Iterations:  len(session.Iterations),
			Elapsed:     elapsed,
			CostUSD:     cost,
			SourceCount: len(sources),
		},
	}
}

// Markdown 渲染 Markdown 版本的报告
func (r *Report) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# 公司研究报告：%s\n\n", r.Target)

	for _, sec := range r.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", facetTitles[sec.Facet])
		if sec.Degraded {
			sb.WriteString("> 注：本节为模板降级产出，置信度较低\n\n")
		}
		sb.WriteString(strings.TrimSpace(sec.Summary))
		sb.WriteString("\n\n")

		if len(sec.Findings) > 0 {
			keys := make([]string, 0, len(sec.Findings))
			for k := range sec.Findings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&sb, "- **%s**: %s\n", k, sec.Findings[k])
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## 参考来源\n\n")
	for _, d := range r.Sources {
		fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", d.Title, d.URL, d.Provider)
	}

	m := r.Metrics
	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "质量评分: %.1f/100 | 迭代轮次: %d | 耗时: %s | 成本估算: $%.4f | 来源数: %d\n",
		m.Score, m.Iterations, m.Elapsed.Round(time.Second), m.CostUSD, m.SourceCount)
	return sb.String()
}
