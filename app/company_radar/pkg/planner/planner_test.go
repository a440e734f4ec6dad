package planner

import (
	"errors"
	"strings"
	"testing"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

func TestPlanInitial(t *testing.T) {
	p := New(5)

	queries, err := p.PlanInitial(model.ResearchTarget{Identifier: "Acme Corp"})
	if err != nil {
		t.Fatalf("PlanInitial() error = %v", err)
	}
	if len(queries) != 5 {
		t.Errorf("PlanInitial() len = %d, want 5", len(queries))
	}
	for _, q := range queries {
		if !strings.Contains(q.Text, "Acme Corp") {
			t.Errorf("查询未包含目标名: %q", q.Text)
		}
		if q.Locale != "" {
			t.Errorf("英语目标不应产生本地化查询: %+v", q)
		}
	}
	// 维度顺序固定
	if queries[0].Facet != model.QueryOverview || queries[1].Facet != model.QueryFinancial {
		t.Errorf("首轮查询维度顺序错误: %v, %v", queries[0].Facet, queries[1].Facet)
	}
}

func TestPlanInitialEmptyTarget(t *testing.T) {
	p := New(5)

	if _, err := p.PlanInitial(model.ResearchTarget{Identifier: "   "}); !errors.Is(err, model.ErrInvalidTarget) {
		t.Errorf("PlanInitial() error = %v, want ErrInvalidTarget", err)
	}
}

func TestPlanInitialLocaleVariants(t *testing.T) {
	p := New(3)

	queries, err := p.PlanInitial(model.ResearchTarget{Identifier: "腾讯", Region: "cn"})
	if err != nil {
		t.Fatalf("PlanInitial() error = %v", err)
	}
	// 3 条英文 + 3 条中文变体
	if len(queries) != 6 {
		t.Fatalf("PlanInitial() len = %d, want 6", len(queries))
	}

	var locales int
	for _, q := range queries {
		if q.Locale == "zh" {
			locales++
		}
	}
	if locales != 3 {
		t.Errorf("本地化查询数 = %d, want 3", locales)
	}
}

func TestPlanInitialLanguageHintOverridesRegion(t *testing.T) {
	p := New(2)

	queries, err := p.PlanInitial(model.ResearchTarget{Identifier: "Sony", Region: "us", Language: "ja-JP"})
	if err != nil {
		t.Fatalf("PlanInitial() error = %v", err)
	}
	var found bool
	for _, q := range queries {
		if q.Locale == "ja" {
			found = true
		}
	}
	if !found {
		t.Errorf("语言提示为 ja-JP 时应产生日语查询: %+v", queries)
	}
}

func TestPlanGapFill(t *testing.T) {
	p := New(5)
	target := model.ResearchTarget{Identifier: "Acme Corp"}

	gaps := []model.MissingInformationGap{
		{Facet: model.FacetFinancial, SuggestedQuery: "Acme Corp annual report revenue figures"},
		{Facet: model.FacetESG},
	}
	queries := p.PlanGapFill(target, gaps, map[string]bool{})
	if len(queries) != 2 {
		t.Fatalf("PlanGapFill() len = %d, want 2", len(queries))
	}
	if queries[0].Text != "Acme Corp annual report revenue figures" {
		t.Errorf("应优先使用建议查询: %q", queries[0].Text)
	}
	if queries[1].Facet != model.QueryFacet(model.FacetESG) {
		t.Errorf("补查维度标签错误: %v", queries[1].Facet)
	}
}

func TestPlanGapFillDedup(t *testing.T) {
	p := New(5)
	target := model.ResearchTarget{Identifier: "Acme Corp"}

	issued := map[string]bool{"Acme Corp annual report revenue figures": true}
	gaps := []model.MissingInformationGap{
		{Facet: model.FacetFinancial, SuggestedQuery: "Acme Corp annual report revenue figures"},
		{Facet: model.FacetRisk, SuggestedQuery: "Acme Corp risk factors regulatory issues"},
		{Facet: model.FacetMarket, SuggestedQuery: "Acme Corp risk factors regulatory issues"},
	}

	queries := p.PlanGapFill(target, gaps, issued)
	if len(queries) != 1 {
		t.Fatalf("PlanGapFill() len = %d, want 1 (已发出与重复查询都应剔除)", len(queries))
	}
	if queries[0].Facet != model.QueryFacet(model.FacetRisk) {
		t.Errorf("剩余查询维度 = %v, want risk", queries[0].Facet)
	}
}
