package factory

import (
	"fmt"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/duckduckgo"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/search"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/searxng"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/tavily"
)

// NewSearcher 根据名称创建单个搜索实例
func NewSearcher(name string, cfg *config.Config) (search.Searcher, error) {
	switch name {
	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey), nil

	case "searxng":
		if cfg.Search.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(cfg.Search.SearXNG.BaseURL, cfg.Search.SearXNG.Timeout), nil

	case "duckduckgo":
		return duckduckgo.NewClient(cfg.Search.TimeoutSeconds), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", name)
	}
}

// NewChain 按配置构建有序的搜索源列表：主源在前，备用源在后。
// 备用源只在主源重试耗尽后使用，结果不做合并
func NewChain(cfg *config.Config) ([]search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" {
		if cfg.Search.Tavily.APIKey != "" {
			provider = "tavily"
		} else {
			provider = "duckduckgo"
		}
	}

	primary, err := NewSearcher(provider, cfg)
	if err != nil {
		return nil, err
	}
	chain := []search.Searcher{primary}

	if cfg.Search.Fallback != "" && cfg.Search.Fallback != provider {
		fallback, err := NewSearcher(cfg.Search.Fallback, cfg)
		if err != nil {
			return nil, fmt.Errorf("备用搜索源初始化失败: %w", err)
		}
		chain = append(chain, fallback)
	}

	return chain, nil
}
