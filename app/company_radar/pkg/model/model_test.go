package model

import (
	"testing"
	"time"
)

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Acme   Corp\n Revenue ")
	if got != "acme corp revenue" {
		t.Errorf("NormalizeText() = %q", got)
	}
}

func TestFingerprintStable(t *testing.T) {
	// 大小写与空白差异不影响指纹
	a := Fingerprint("Acme Corp  revenue")
	b := Fingerprint("acme corp revenue")
	if a != b {
		t.Errorf("归一化后指纹应一致: %s vs %s", a, b)
	}
	if a == Fingerprint("acme corp profit") {
		t.Error("不同文本指纹不应相同")
	}
}

func TestSectionCacheKeyOrderIndependent(t *testing.T) {
	d1 := SourceDocument{Fingerprint: Fingerprint("doc-1")}
	d2 := SourceDocument{Fingerprint: Fingerprint("doc-2")}

	a := SectionCacheKey(FacetFinancial, []SourceDocument{d1, d2})
	b := SectionCacheKey(FacetFinancial, []SourceDocument{d2, d1})
	if a != b {
		t.Error("文档顺序不应影响缓存键")
	}
	if a == SectionCacheKey(FacetMarket, []SourceDocument{d1, d2}) {
		t.Error("不同维度的缓存键应不同")
	}
}

func TestCurrentSectionsKeepsLatest(t *testing.T) {
	s := &ResearchSession{
		Iterations: []*Iteration{
			{
				Index: 1,
				Sections: map[Facet]*AnalysisSection{
					FacetFinancial: {Facet: FacetFinancial, Summary: "first"},
					FacetMarket:    {Facet: FacetMarket, Summary: "market"},
				},
			},
			{
				Index: 2,
				Sections: map[Facet]*AnalysisSection{
					FacetFinancial: {Facet: FacetFinancial, Summary: "second"},
					FacetESG:       {Facet: FacetESG}, // 空产出不覆盖
				},
			},
		},
	}

	sections := s.CurrentSections()
	if sections[FacetFinancial].Summary != "second" {
		t.Errorf("应保留最新一版: %q", sections[FacetFinancial].Summary)
	}
	if sections[FacetMarket].Summary != "market" {
		t.Error("上一轮的维度产出应保留")
	}
	if _, ok := sections[FacetESG]; ok {
		t.Error("空产出不应出现在合并结果里")
	}
}

func TestAllDocumentsDedup(t *testing.T) {
	s := &ResearchSession{
		Iterations: []*Iteration{
			{Documents: []SourceDocument{{URL: "http://a.com"}, {URL: "http://b.com"}}},
			{Documents: []SourceDocument{{URL: "http://a.com"}, {URL: "http://c.com"}}},
		},
	}
	docs := s.AllDocuments()
	if len(docs) != 3 {
		t.Errorf("AllDocuments() len = %d, want 3", len(docs))
	}
	if docs[0].URL != "http://a.com" {
		t.Error("应保留首次出现顺序")
	}
}

func TestFinalAssessment(t *testing.T) {
	s := &ResearchSession{}
	if s.FinalAssessment() != nil {
		t.Error("无迭代时应返回 nil")
	}

	s.Iterations = []*Iteration{
		{Assessment: &QualityAssessment{Score: 40, AssessedAt: time.Now()}},
		{Assessment: &QualityAssessment{Score: 88, AssessedAt: time.Now()}},
	}
	if got := s.FinalAssessment(); got.Score != 88 {
		t.Errorf("FinalAssessment() score = %v, want 88", got.Score)
	}
}

func TestSourceDocumentText(t *testing.T) {
	d := &SourceDocument{Snippet: "snippet", FullText: "full"}
	if d.Text() != "full" {
		t.Error("应优先返回全文")
	}
	d.FullText = ""
	if d.Text() != "snippet" {
		t.Error("无全文时返回摘要")
	}
}
