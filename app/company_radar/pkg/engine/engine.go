package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/analyzer"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/assessor"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/budget"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/cache"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/llm"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/planner"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/retry"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/search/factory"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/sourcer"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/storage"
)

// retriever 一轮查询的检索入口
type retriever interface {
	Retrieve(ctx context.Context, queries []model.SearchQuery) []model.SourceDocument
}

// analyzerRunner 全维度分析入口
type analyzerRunner interface {
	RunAll(ctx context.Context, target model.ResearchTarget, docs []model.SourceDocument, prior map[model.Facet]*model.AnalysisSection) map[model.Facet]*model.AnalysisSection
}

// qualityAssessor 质量评估入口
type qualityAssessor interface {
	Assess(target model.ResearchTarget, sections map[model.Facet]*model.AnalysisSection) *model.QualityAssessment
}

// sessionSaver 会话落库入口
type sessionSaver interface {
	SaveSession(session *model.ResearchSession) error
}

// Engine 核心处理引擎：驱动 规划→检索→分析→评估→补查 的会话状态机
type Engine struct {
	cfg      *config.Config
	store    sessionSaver
	planner  *planner.Planner
	assessor qualityAssessor

	newRetriever func(tracker *budget.Tracker) retriever
	newAnalyzer  func(tracker *budget.Tracker) analyzerRunner
	newTracker   func() *budget.Tracker
}

// NewEngine 创建引擎实例。store 可为 nil（不落库，仅内存缓存）
func NewEngine(cfg *config.Config, store *storage.Storage) (*Engine, error) {
	ctx := context.Background()

	client, err := llm.NewClient(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cfg.Concurrency.QPS)

	chain, err := factory.NewChain(cfg)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	var cacheSt cache.Store
	if store != nil {
		cacheSt, err = cache.NewPostgres(store.DB(), cfg.Cache.TTL())
		if err != nil {
			logger.Log.Warnf("持久化缓存初始化失败，退回内存缓存: %v", err)
			cacheSt = cache.NewMemory(cfg.Cache.TTL())
		}
	} else {
		cacheSt = cache.NewMemory(cfg.Cache.TTL())
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay(),
		Backoff:     cfg.Retry.Backoff,
	}

	e := &Engine{
		cfg:      cfg,
		planner:  planner.New(cfg.Research.NumSearchQueries),
		assessor: assessor.New(cfg.Research.Weights, cfg.Research.QualityThreshold, cfg.Research.FacetFloor),
	}
	if store != nil {
		e.store = store
	}
	e.newTracker = func() *budget.Tracker {
		return budget.NewTracker(
			cfg.Research.TargetCostUSD,
			time.Duration(cfg.Research.MaxResearchSeconds)*time.Second,
			cfg.LLM.PriceInPer1K,
			cfg.LLM.PriceOutPer1K,
			cfg.Search.CostPerQueryUSD,
		)
	}
	e.newRetriever = func(tracker *budget.Tracker) retriever {
		return sourcer.New(sourcer.Options{
			Chain:           chain,
			Store:           cacheSt,
			Tracker:         tracker,
			Policy:          policy,
			Timeout:         time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
			ResultsPerQuery: cfg.Search.ResultsPerQuery,
			MaxResults:      cfg.Search.MaxResults,
			EnrichContent:   true,
		})
	}
	e.newAnalyzer = func(tracker *budget.Tracker) analyzerRunner {
		return analyzer.New(client, limiter, tracker, cacheSt, policy)
	}
	return e, nil
}

// RunOptions 运行选项
type RunOptions struct {
	Target           model.ResearchTarget
	ProgressCallback func(status string, progress int)
}

// Run 执行一次研究会话直至终态。
// 目标非法时不创建会话直接报错；其余失败都收敛到会话的终态里
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*model.ResearchSession, error) {
	progress := opts.ProgressCallback
	if progress == nil {
		progress = func(string, int) {}
	}

	// planning：先规划首轮查询，目标非法时不创建会话
	initialQueries, err := e.planner.PlanInitial(opts.Target)
	if err != nil {
		return nil, err
	}

	tracker := e.newTracker()
	src := e.newRetriever(tracker)
	analyzers := e.newAnalyzer(tracker)

	session := &model.ResearchSession{
		ID:        uuid.NewString(),
		Target:    opts.Target,
		Status:    model.StatusPlanning,
		StartedAt: time.Now(),
	}
	logger.Log.Infof("会话 [%s] 启动，研究目标: %s", session.ID, opts.Target.Identifier)
	progress("planning", 5)

	// 超出硬性时间上限时让在途任务随 context 取消被放弃
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Research.MaxResearchSeconds)*time.Second)
	defer cancel()

	queries := initialQueries
	maxIter := e.cfg.Research.MaxIterations

	for iter := 1; ; iter++ {
		itStart := time.Now()
		costBefore := tracker.CostUSD()

		session.Status = model.StatusRetrieving
		progress(fmt.Sprintf("retrieving (iteration %d)", iter), 10+30*(iter-1)/maxIter)
		docs := src.Retrieve(runCtx, queries)
		logger.Log.Infof("会话 [%s] 第 %d 轮检索到 %d 篇文档", session.ID, iter, len(docs))

		if iter == 1 && len(docs) == 0 && runCtx.Err() == nil {
			// 首轮完全检索不到任何文档属于硬性外部故障
			session.Status = model.StatusFailed
			session.Reason = model.ReasonFatalError
			session.Err = "所有搜索源均不可用，未检索到任何文档"
			session.FinishedAt = time.Now()
			e.persist(session)
			return session, fmt.Errorf("会话失败: %s", session.Err)
		}

		session.Status = model.StatusAnalyzing
		progress(fmt.Sprintf("analyzing (iteration %d)", iter), 40+30*(iter-1)/maxIter)
		all := append(session.AllDocuments(), docs...)
		prior := session.CurrentSections()
		sections := analyzers.RunAll(runCtx, opts.Target, all, prior)

		session.Status = model.StatusAssessing
		progress("assessing", 80)
		assessment := e.assessor.Assess(opts.Target, sections)
		logger.Log.Infof("会话 [%s] 第 %d 轮评分: %.1f (完整度 %.1f / 准确度 %.1f / 深度 %.1f)",
			session.ID, iter, assessment.Score, assessment.Completeness, assessment.Accuracy, assessment.Depth)

		// 分数下降只告警，不视为错误
		if prev := session.FinalAssessment(); prev != nil && assessment.Score < prev.Score {
			logger.Log.Warnf("会话 [%s] 评分下降: %.1f -> %.1f", session.ID, prev.Score, assessment.Score)
		}

		session.Iterations = append(session.Iterations, &model.Iteration{
			Index:      iter,
			Queries:    queries,
			Documents:  docs,
			Sections:   sections,
			Assessment: assessment,
			CostUSD:    tracker.CostUSD() - costBefore,
			Elapsed:    time.Since(itStart),
		})

		// 迭代边界：终态判定有且仅有一个原因
		switch {
		case assessment.Passed:
			session.Reason = model.ReasonThresholdMet
		case tracker.BudgetExceeded() || runCtx.Err() != nil:
			session.Reason = model.ReasonBudgetExceeded
		case iter >= maxIter:
			session.Reason = model.ReasonMaxIterations
		default:
			session.Status = model.StatusGapFilling
			progress("gap_filling", 85)
			queries = e.planner.PlanGapFill(opts.Target, assessment.Gaps, session.IssuedQueries())
			if len(queries) > 0 {
				logger.Log.Infof("会话 [%s] 针对 %d 个缺口发起补查", session.ID, len(queries))
				continue
			}
			// 无法生成新的补查时继续迭代没有意义
			logger.Log.Warnf("会话 [%s] 无可用补查查询，提前结束", session.ID)
			session.Reason = model.ReasonMaxIterations
		}

		session.Status = model.StatusDone
		session.FinishedAt = time.Now()
		break
	}

	logger.Log.Infof("会话 [%s] 结束: %s (%s)，耗时 %s，成本 $%.4f",
		session.ID, session.Status, session.Reason, tracker.Elapsed().Round(time.Second), tracker.CostUSD())
	progress("completed", 100)
	e.persist(session)
	return session, nil
}

func (e *Engine) persist(session *model.ResearchSession) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveSession(session); err != nil {
		logger.Log.Errorf("会话持久化失败 [%s]: %v", session.ID, err)
	}
}
