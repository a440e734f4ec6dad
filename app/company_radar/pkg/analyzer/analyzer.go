package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/budget"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/cache"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/llm"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/retry"
)

// Analyzer 专项分析器集合。各独立维度并行执行，
// investment_thesis 与 synthesis 依赖其余维度的产出，置于第二波执行
type Analyzer struct {
	client  llm.Client
	limiter *rate.Limiter
	tracker *budget.Tracker
	store   cache.Store
	policy  retry.Policy
}

// New 创建分析器集合
func New(client llm.Client, limiter *rate.Limiter, tracker *budget.Tracker, store cache.Store, policy retry.Policy) *Analyzer {
	return &Analyzer{
		client:  client,
		limiter: limiter,
		tracker: tracker,
		store:   store,
		policy:  policy,
	}
}

// 分析维度接受的检索维度标签。命中为空时退回到全部文档
var facetScopes = map[model.Facet][]model.QueryFacet{
	model.FacetFinancial:   {model.QueryFinancial, model.QueryOverview},
	model.FacetMarket:      {model.QueryMarket, model.QueryOverview, model.QueryNews},
	model.FacetESG:         {model.QueryNews, model.QueryOverview},
	model.FacetBrand:       {model.QueryProduct, model.QueryNews, model.QueryOverview},
	model.FacetCompetitive: {model.QueryMarket, model.QueryProduct},
	model.FacetRisk:        {model.QueryNews, model.QueryFinancial, model.QueryMarket},
}

// task 依赖有序的分析任务节点
type task struct {
	facet model.Facet
	deps  []model.Facet
}

// buildGraph 构造任务图：独立维度无依赖，汇总维度依赖其余全部
func buildGraph() []task {
	var tasks []task
	for _, f := range model.IndependentFacets {
		tasks = append(tasks, task{facet: f})
	}
	deps := append([]model.Facet(nil), model.IndependentFacets...)
	tasks = append(tasks, task{facet: model.FacetThesis, deps: deps})
	tasks = append(tasks, task{facet: model.FacetSynthesis, deps: deps})
	return tasks
}

// RunAll 执行全部维度的分析。按依赖图分波并行：
// 就绪任务（依赖全部完成）为一波，波内用 errgroup 并行。
// 单个分析器失败会降级为模板产出，不会让整轮分析失败
func (a *Analyzer) RunAll(ctx context.Context, target model.ResearchTarget, docs []model.SourceDocument, prior map[model.Facet]*model.AnalysisSection) map[model.Facet]*model.AnalysisSection {
	tasks := buildGraph()
	done := make(map[model.Facet]*model.AnalysisSection)

	for len(done) < len(tasks) {
		var wave []task
		for _, t := range tasks {
			if _, ok := done[t.facet]; ok {
				continue
			}
			ready := true
			for _, dep := range t.deps {
				if _, ok := done[dep]; !ok {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, t)
			}
		}
		if len(wave) == 0 {
			break // 依赖图异常，不应发生
		}

		results := make([]*model.AnalysisSection, len(wave))
		var g errgroup.Group
		for i, t := range wave {
			g.Go(func() error {
				if len(t.deps) > 0 {
					results[i] = a.analyzeFanIn(ctx, target, t.facet, done, docs)
				} else {
					results[i] = a.analyzeFacet(ctx, target, t.facet, docs, prior[t.facet])
				}
				return nil
			})
		}
		g.Wait()

		for i, t := range wave {
			done[t.facet] = results[i]
		}
	}
	return done
}

// analyzeFacet 单个独立维度：缓存优先，LLM 重试耗尽后模板降级
func (a *Analyzer) analyzeFacet(ctx context.Context, target model.ResearchTarget, facet model.Facet, docs []model.SourceDocument, prior *model.AnalysisSection) *model.AnalysisSection {
	scoped := scopeDocuments(facet, docs)
	if len(scoped) == 0 {
		logger.Log.Warnf("维度 [%s] 无可用文档，直接降级", facet)
		return templateExtract(target, facet, nil)
	}

	key := model.SectionCacheKey(facet, scoped)
	if a.store != nil {
		if raw, err := a.store.Get(key); err == nil {
			var sec model.AnalysisSection
			if err := json.Unmarshal(raw, &sec); err == nil {
				logger.Log.Debugf("维度 [%s] 命中分析缓存", facet)
				restoreMeta(&sec, facet, scoped)
				return &sec
			}
			logger.Log.Warnf("分析缓存无法解析，重新计算 [%s]: %v", facet, err)
		}
	}

	prompt := buildFacetPrompt(target, facet, scoped, prior)
	sec, err := a.generate(ctx, facet, prompt, scoped)
	if err != nil {
		logger.Log.Errorf("维度 [%s] 分析失败，启用模板降级: %v", facet, err)
		return templateExtract(target, facet, scoped)
	}

	if a.store != nil {
		if raw, err := json.Marshal(sec); err == nil {
			if err := a.store.Store(key, raw); err != nil {
				logger.Log.Warnf("分析结果写入缓存失败 [%s]: %v", facet, err)
			}
		}
	}
	return sec
}

// analyzeFanIn thesis/synthesis：输入为其余维度的结论，不走分析缓存
func (a *Analyzer) analyzeFanIn(ctx context.Context, target model.ResearchTarget, facet model.Facet, sections map[model.Facet]*model.AnalysisSection, docs []model.SourceDocument) *model.AnalysisSection {
	prompt := buildFanInPrompt(target, facet, sections)
	sec, err := a.generate(ctx, facet, prompt, docs)
	if err != nil {
		logger.Log.Errorf("维度 [%s] 汇总失败，启用模板降级: %v", facet, err)
		return templateExtract(target, facet, docs)
	}
	return sec
}

// generate 发起带限流与重试的 LLM 调用并解析结构化产出
func (a *Analyzer) generate(ctx context.Context, facet model.Facet, prompt string, docs []model.SourceDocument) (*model.AnalysisSection, error) {
	var sec model.AnalysisSection
	var costUSD float64
	var tokens int

	err := retry.Do(ctx, a.policy, func(ctx context.Context) error {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		resp, err := a.client.Generate(ctx, &llm.Request{
			System:      systemPrompt,
			User:        prompt,
			Temperature: 0.2,
		})
		if err != nil {
			return err
		}
		if a.tracker != nil {
			costUSD += a.tracker.AddLLMUsage(resp.PromptTokens, resp.CompletionTokens)
			tokens += resp.PromptTokens + resp.CompletionTokens
		}

		var parsed struct {
			Summary    string            `json:"summary"`
			Findings   map[string]string `json:"findings"`
			Confidence float64           `json:"confidence"`
		}
		if err := json.Unmarshal([]byte(llm.CleanJSON(resp.Content)), &parsed); err != nil {
			return fmt.Errorf("%w: %v", model.ErrMalformedOutput, err)
		}
		sec = model.AnalysisSection{
			Summary:    parsed.Summary,
			Findings:   parsed.Findings,
			Confidence: parsed.Confidence,
		}
		return nil
	})
	if err != nil {
		return nil, &model.AnalysisError{Facet: facet, Err: err}
	}

	restoreMeta(&sec, facet, docs)
	sec.CostUSD = costUSD
	sec.Tokens = tokens
	return &sec, nil
}

// restoreMeta 补齐不参与 JSON 序列化的元数据字段
func restoreMeta(sec *model.AnalysisSection, facet model.Facet, docs []model.SourceDocument) {
	sec.Facet = facet
	sec.GeneratedAt = time.Now()
	if sec.Confidence < 0 {
		sec.Confidence = 0
	}
	if sec.Confidence > 1 {
		sec.Confidence = 1
	}
	sec.SourceURLs = sec.SourceURLs[:0]
	for _, d := range docs {
		sec.SourceURLs = append(sec.SourceURLs, d.URL)
	}
}

// scopeDocuments 按检索维度标签圈定该分析维度的文档。
// 标签与维度同名（补查轮的定向查询）的文档始终纳入
func scopeDocuments(facet model.Facet, docs []model.SourceDocument) []model.SourceDocument {
	accepted := make(map[model.QueryFacet]bool)
	for _, qf := range facetScopes[facet] {
		accepted[qf] = true
	}
	accepted[model.QueryFacet(facet)] = true

	var scoped []model.SourceDocument
	for _, d := range docs {
		if accepted[d.Facet] {
			scoped = append(scoped, d)
		}
	}
	if len(scoped) == 0 {
		return docs
	}
	return scoped
}
