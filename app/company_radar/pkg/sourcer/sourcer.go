package sourcer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/budget"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/cache"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/retry"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/search"
)

const (
	minSnippetLen = 500  // 摘要低于此长度时尝试抓取全文
	maxContentLen = 5000 // 送入分析的单篇正文上限
	minContentLen = 100  // 低于此长度视为无效文档
)

// Sourcer 检索适配层：并发发出一轮查询，缓存优先，
// 单查询失败记为部分失败而非会话失败
type Sourcer struct {
	chain    []search.Searcher // 主源在前，备用源在后
	store    cache.Store
	tracker  *budget.Tracker
	policy   retry.Policy
	timeout  time.Duration
	perQuery int
	maxTotal int
	enrich   bool
}

// Options Sourcer 构建参数
type Options struct {
	Chain           []search.Searcher
	Store           cache.Store
	Tracker         *budget.Tracker
	Policy          retry.Policy
	Timeout         time.Duration
	ResultsPerQuery int
	MaxResults      int
	EnrichContent   bool // 摘要过短时用 readability 抓全文
}

// New 创建检索适配器
func New(opts Options) *Sourcer {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ResultsPerQuery == 0 {
		opts.ResultsPerQuery = 3
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = 15
	}
	return &Sourcer{
		chain:    opts.Chain,
		store:    opts.Store,
		tracker:  opts.Tracker,
		policy:   opts.Policy,
		timeout:  opts.Timeout,
		perQuery: opts.ResultsPerQuery,
		maxTotal: opts.MaxResults,
		enrich:   opts.EnrichContent,
	}
}

// Retrieve 并发执行一批查询并汇聚结果。
// 返回文档按查询顺序排列，保留提供商的相关度排序，
// 整体数量不超过 max_results，按指纹去重
func (s *Sourcer) Retrieve(ctx context.Context, queries []model.SearchQuery) []model.SourceDocument {
	perQuery := make([][]model.SourceDocument, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			perQuery[i] = s.retrieveOne(ctx, q)
			return nil // 单查询失败不向上传播
		})
	}
	g.Wait()

	var docs []model.SourceDocument
	seen := make(map[string]bool)
	for _, batch := range perQuery {
		for _, d := range batch {
			if len(docs) >= s.maxTotal {
				return docs
			}
			if seen[d.Fingerprint] {
				continue
			}
			seen[d.Fingerprint] = true
			docs = append(docs, d)
		}
	}
	return docs
}

// retrieveOne 处理单条查询：缓存命中直接返回，
// 未命中则依次尝试搜索源（主源重试耗尽后降级到备用源）
func (s *Sourcer) retrieveOne(ctx context.Context, q model.SearchQuery) []model.SourceDocument {
	key := queryCacheKey(q.Text)
	if s.store != nil {
		if raw, err := s.store.Get(key); err == nil {
			var docs []model.SourceDocument
			if err := json.Unmarshal(raw, &docs); err == nil {
				logger.Log.Debugf("查询命中缓存 [%s]", q.Text)
				return docs
			}
			logger.Log.Warnf("缓存内容无法解析，重新检索 [%s]: %v", q.Text, err)
		}
	}

	var resp *search.Response
	var provider string
	for _, searcher := range s.chain {
		r, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (*search.Response, error) {
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			if s.tracker != nil {
				s.tracker.AddSearch()
			}
			r, err := searcher.Search(callCtx, &search.Request{
				Query:      q.Text,
				MaxResults: s.perQuery,
			})
			if err != nil {
				return nil, model.ClassifyProviderError(searcher.Name(), err)
			}
			return r, nil
		})
		if err == nil {
			resp = r
			provider = searcher.Name()
			break
		}
		logger.Log.Warnf("搜索源 [%s] 重试耗尽 [%s]: %v", searcher.Name(), q.Text, err)
	}

	if resp == nil {
		logger.Log.Warnf("查询无可用结果，记为部分失败 [%s]", q.Text)
		return nil
	}

	docs := s.toDocuments(resp, provider, q.Facet)
	if s.store != nil && len(docs) > 0 {
		if raw, err := json.Marshal(docs); err == nil {
			if err := s.store.Store(key, raw); err != nil {
				logger.Log.Warnf("检索结果写入缓存失败 [%s]: %v", q.Text, err)
			}
		}
	}
	return docs
}

// toDocuments 转换并清洗提供商结果，保留原始排序
func (s *Sourcer) toDocuments(resp *search.Response, provider string, facet model.QueryFacet) []model.SourceDocument {
	var docs []model.SourceDocument
	for rank, item := range resp.Results {
		if len(docs) >= s.perQuery {
			break
		}

		content := item.Content
		if item.RawContent != "" && len(item.RawContent) > len(content) {
			content = item.RawContent
		}
		if s.enrich && len(content) < minSnippetLen {
			if fetched, err := fetchAndCleanContent(item.URL); err == nil && len(fetched) > len(content) {
				content = fetched
			}
		}
		if len(content) > maxContentLen {
			content = content[:maxContentLen]
		}
		if len(content) < minContentLen {
			continue
		}

		docs = append(docs, model.SourceDocument{
			URL:         item.URL,
			Title:       item.Title,
			Snippet:     item.Content,
			FullText:    content,
			Provider:    provider,
			Facet:       facet,
			Rank:        rank,
			RetrievedAt: time.Now(),
			Fingerprint: model.Fingerprint(content),
		})
	}
	return docs
}

// fetchAndCleanContent 抓取 URL 并提取核心文本
func fetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, 30*time.Second)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

// queryCacheKey 归一化查询文本后的缓存键
func queryCacheKey(text string) string {
	return model.Fingerprint("query|" + text)
}
