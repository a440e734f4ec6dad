package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Facet 分析维度
type Facet string

const (
	FacetFinancial   Facet = "financial"
	FacetMarket      Facet = "market"
	FacetESG         Facet = "esg"
	FacetBrand       Facet = "brand"
	FacetCompetitive Facet = "competitive"
	FacetRisk        Facet = "risk"
	FacetThesis      Facet = "investment_thesis"
	FacetSynthesis   Facet = "synthesis"
)

// AnalysisFacets 报告中各分析维度的固定顺序
var AnalysisFacets = []Facet{
	FacetFinancial, FacetMarket, FacetESG, FacetBrand,
	FacetCompetitive, FacetRisk, FacetThesis, FacetSynthesis,
}

// IndependentFacets 可并行执行的维度（thesis/synthesis 依赖其余维度的产出）
var IndependentFacets = []Facet{
	FacetFinancial, FacetMarket, FacetESG, FacetBrand,
	FacetCompetitive, FacetRisk,
}

// QueryFacet 检索维度
type QueryFacet string

const (
	QueryOverview   QueryFacet = "overview"
	QueryFinancial  QueryFacet = "financial"
	QueryProduct    QueryFacet = "product"
	QueryMarket     QueryFacet = "market"
	QueryNews       QueryFacet = "news"
	QueryLeadership QueryFacet = "leadership"
)

// QueryFacets 首轮检索覆盖的固定维度顺序
var QueryFacets = []QueryFacet{
	QueryOverview, QueryFinancial, QueryProduct,
	QueryMarket, QueryNews, QueryLeadership,
}

// ResearchTarget 研究目标，会话启动后不可变更
type ResearchTarget struct {
	Identifier   string `json:"identifier"`              // 公司名或股票代码
	Region       string `json:"region,omitempty"`        // ISO 3166-1 alpha-2，如 "cn"、"jp"
	Language     string `json:"language,omitempty"`      // BCP47 语言提示，可为空
	PriorSession string `json:"prior_session,omitempty"` // 可选：上一次会话 ID
}

// SearchQuery 由 Query Planner 生成，Source Provider 消费一次
type SearchQuery struct {
	Text   string     `json:"text"`
	Facet  QueryFacet `json:"facet"`
	Locale string     `json:"locale,omitempty"` // 空表示英文原始查询
}

// SourceDocument 检索到的原始文档，随会话生命周期存在
type SourceDocument struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	FullText    string     `json:"full_text,omitempty"`
	Provider    string     `json:"provider"`
	Facet       QueryFacet `json:"facet"` // 来源查询的维度标签，用于分析时圈定文档
	Rank        int        `json:"rank"`
	RetrievedAt time.Time  `json:"retrieved_at"`
	Fingerprint string     `json:"fingerprint"` // 归一化正文的哈希，用于缓存与去重
}

// Text 返回用于分析的正文（优先全文）
func (d *SourceDocument) Text() string {
	if d.FullText != "" {
		return d.FullText
	}
	return d.Snippet
}

// AnalysisSection 单个维度的分析产出，仅以整体替换方式更新
type AnalysisSection struct {
	Facet       Facet             `json:"facet"`
	Summary     string            `json:"summary"`
	Findings    map[string]string `json:"findings"`
	Confidence  float64           `json:"confidence"`
	Degraded    bool              `json:"degraded"` // LLM 不可用时的模板降级产物
	SourceURLs  []string          `json:"source_urls"`
	CostUSD     float64           `json:"cost_usd"`
	Tokens      int               `json:"tokens"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Empty 判断该维度是否没有任何有效内容
func (s *AnalysisSection) Empty() bool {
	return s == nil || (strings.TrimSpace(s.Summary) == "" && len(s.Findings) == 0)
}

// MissingInformationGap 质量评估发现的信息缺口
type MissingInformationGap struct {
	Facet          Facet  `json:"facet"`
	Description    string `json:"description"`
	SuggestedQuery string `json:"suggested_query"`
}

// QualityAssessment 单轮质量评估结果，每轮重新计算
type QualityAssessment struct {
	Score        float64                 `json:"score"`
	Completeness float64                 `json:"completeness"`
	Accuracy     float64                 `json:"accuracy"`
	Depth        float64                 `json:"depth"`
	Gaps         []MissingInformationGap `json:"gaps,omitempty"`
	Passed       bool                    `json:"passed"`
	AssessedAt   time.Time               `json:"assessed_at"`
}

// SessionStatus 会话状态机状态
type SessionStatus string

const (
	StatusPlanning   SessionStatus = "planning"
	StatusRetrieving SessionStatus = "retrieving"
	StatusAnalyzing  SessionStatus = "analyzing"
	StatusAssessing  SessionStatus = "assessing"
	StatusGapFilling SessionStatus = "gap_filling"
	StatusDone       SessionStatus = "done"
	StatusFailed     SessionStatus = "failed"
)

// TerminalReason 会话终止原因，有且仅有一个
type TerminalReason string

const (
	ReasonThresholdMet   TerminalReason = "threshold_met"
	ReasonMaxIterations  TerminalReason = "max_iterations"
	ReasonBudgetExceeded TerminalReason = "budget_exceeded"
	ReasonFatalError     TerminalReason = "fatal_error"
)

// Iteration 会话中一轮完整的 检索-分析-评估 记录，只追加不修改
type Iteration struct {
	Index      int                        `json:"index"`
	Queries    []SearchQuery              `json:"queries"`
	Documents  []SourceDocument           `json:"documents"`
	Sections   map[Facet]*AnalysisSection `json:"sections"`
	Assessment *QualityAssessment         `json:"assessment"`
	CostUSD    float64                    `json:"cost_usd"`
	Elapsed    time.Duration              `json:"elapsed"`
}

// ResearchSession 一次完整的研究会话
type ResearchSession struct {
	ID         string         `json:"id"`
	Target     ResearchTarget `json:"target"`
	Iterations []*Iteration   `json:"iterations"`
	Status     SessionStatus  `json:"status"`
	Reason     TerminalReason `json:"reason,omitempty"`
	Err        string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// CurrentSections 返回各维度最新一版的分析结果
func (s *ResearchSession) CurrentSections() map[Facet]*AnalysisSection {
	merged := make(map[Facet]*AnalysisSection)
	for _, it := range s.Iterations {
		for f, sec := range it.Sections {
			if !sec.Empty() {
				merged[f] = sec
			}
		}
	}
	return merged
}

// IssuedQueries 返回会话内已发出的全部查询文本，用于精确去重
func (s *ResearchSession) IssuedQueries() map[string]bool {
	seen := make(map[string]bool)
	for _, it := range s.Iterations {
		for _, q := range it.Queries {
			seen[q.Text] = true
		}
	}
	return seen
}

// AllDocuments 返回会话内检索到的全部文档（按 URL 去重，保留首次出现顺序）
func (s *ResearchSession) AllDocuments() []SourceDocument {
	var docs []SourceDocument
	seen := make(map[string]bool)
	for _, it := range s.Iterations {
		for _, d := range it.Documents {
			if !seen[d.URL] {
				seen[d.URL] = true
				docs = append(docs, d)
			}
		}
	}
	return docs
}

// FinalAssessment 返回最后一轮的评估结果
func (s *ResearchSession) FinalAssessment() *QualityAssessment {
	for i := len(s.Iterations) - 1; i >= 0; i-- {
		if s.Iterations[i].Assessment != nil {
			return s.Iterations[i].Assessment
		}
	}
	return nil
}

// NormalizeText 归一化文本：小写并压缩空白，用于指纹计算
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Fingerprint 计算归一化文本的十六进制哈希
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(NormalizeText(s)))
	return hex.EncodeToString(sum[:])
}

// SectionCacheKey 计算 (维度, 输入文档指纹集合) 的缓存键
func SectionCacheKey(facet Facet, docs []SourceDocument) string {
	fps := make([]string, 0, len(docs))
	for _, d := range docs {
		fps = append(fps, d.Fingerprint)
	}
	sort.Strings(fps)
	return Fingerprint(string(facet) + "|" + strings.Join(fps, ","))
}
