package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体。加载时校验一次，之后对流程只读
type Config struct {
	LLM         LLMConfig      `yaml:"llm"`
	Search      SearchConfig   `yaml:"search"`
	Research    ResearchConfig `yaml:"research"`
	Retry       RetryConfig    `yaml:"retry"`
	Cache       CacheConfig    `yaml:"cache"`
	Concurrency Concurrency    `yaml:"concurrency"`
	DB          DBConfig       `yaml:"db"`
	Log         LogConfig      `yaml:"log"`
	Notify      NotifyConfig   `yaml:"notify"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // openai 或 gemini
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	PriceInPer1K  float64 `yaml:"price_in_per_1k"`  // 输入 token 单价 (USD/1K)
	PriceOutPer1K float64 `yaml:"price_out_per_1k"` // 输出 token 单价 (USD/1K)
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider        string        `yaml:"provider"` // 主搜索源
	Fallback        string        `yaml:"fallback"` // 主源耗尽重试后的备用源
	Tavily          TavilyConfig  `yaml:"tavily"`
	SearXNG         SearXNGConfig `yaml:"searxng"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	ResultsPerQuery int           `yaml:"results_per_query"`
	MaxResults      int           `yaml:"max_results"`
	CostPerQueryUSD float64       `yaml:"cost_per_query_usd"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// ResearchConfig 研究循环控制配置
type ResearchConfig struct {
	QualityThreshold   float64       `yaml:"quality_threshold"`
	MaxIterations      int           `yaml:"max_iterations"`
	NumSearchQueries   int           `yaml:"num_search_queries"`
	TargetCostUSD      float64       `yaml:"target_cost_usd"`
	MaxResearchSeconds int           `yaml:"max_research_time_seconds"`
	Weights            RubricWeights `yaml:"weights"`
	FacetFloor         float64       `yaml:"facet_floor"` // 单维度完整度下限，低于则产生缺口
}

// RubricWeights 评分权重，三项之和必须为 100
type RubricWeights struct {
	Completeness float64 `yaml:"completeness"`
	Accuracy     float64 `yaml:"accuracy"`
	Depth        float64 `yaml:"depth"`
}

// RetryConfig 重试相关配置
type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	DelaySeconds float64 `yaml:"delay_seconds"`
	Backoff      float64 `yaml:"backoff"`
}

// Delay 起始重试延迟
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelaySeconds * float64(time.Second))
}

// CacheConfig 缓存相关配置
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL 缓存条目存活时长
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Concurrency 并发控制配置
type Concurrency struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotifyConfig 通知相关配置
type NotifyConfig struct {
	Email EmailConfig `yaml:"email"`
}

// EmailConfig SMTP 邮件通知配置
type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	SMTPUser   string `yaml:"smtp_user"`
	SMTPPass   string `yaml:"smtp_pass"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// LoadConfig 从指定路径加载并校验配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Research.QualityThreshold == 0 {
		c.Research.QualityThreshold = 85
	}
	if c.Research.MaxIterations == 0 {
		c.Research.MaxIterations = 2
	}
	if c.Research.NumSearchQueries == 0 {
		c.Research.NumSearchQueries = 5
	}
	if c.Research.MaxResearchSeconds == 0 {
		c.Research.MaxResearchSeconds = 600
	}
	if c.Research.Weights == (RubricWeights{}) {
		c.Research.Weights = RubricWeights{Completeness: 40, Accuracy: 30, Depth: 30}
	}
	if c.Research.FacetFloor == 0 {
		c.Research.FacetFloor = 0.6
	}
	if c.Search.TimeoutSeconds == 0 {
		c.Search.TimeoutSeconds = 30
	}
	if c.Search.ResultsPerQuery == 0 {
		c.Search.ResultsPerQuery = 3
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 15
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.DelaySeconds == 0 {
		c.Retry.DelaySeconds = 5
	}
	if c.Retry.Backoff == 0 {
		c.Retry.Backoff = 2
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 86400
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 2
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 60
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
}

// Validate 范围校验，会话启动前执行一次
func (c *Config) Validate() error {
	w := c.Research.Weights
	if w.Completeness+w.Accuracy+w.Depth != 100 {
		return fmt.Errorf("评分权重之和必须为 100，当前为 %.1f", w.Completeness+w.Accuracy+w.Depth)
	}
	if c.Research.QualityThreshold < 0 || c.Research.QualityThreshold > 100 {
		return fmt.Errorf("quality_threshold 必须在 [0,100] 内: %.1f", c.Research.QualityThreshold)
	}
	if c.Research.MaxIterations < 1 {
		return fmt.Errorf("max_iterations 必须 >= 1: %d", c.Research.MaxIterations)
	}
	if c.Research.NumSearchQueries < 1 {
		return fmt.Errorf("num_search_queries 必须 >= 1: %d", c.Research.NumSearchQueries)
	}
	if c.Research.FacetFloor < 0 || c.Research.FacetFloor > 1 {
		return fmt.Errorf("facet_floor 必须在 [0,1] 内: %.2f", c.Research.FacetFloor)
	}
	if c.Search.ResultsPerQuery < 1 || c.Search.MaxResults < 1 {
		return fmt.Errorf("搜索结果上限必须为正数")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts 必须 >= 1: %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Backoff < 1 {
		return fmt.Errorf("retry.backoff 必须 >= 1: %.1f", c.Retry.Backoff)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("未知的 LLM provider: %s", c.LLM.Provider)
	}
	return nil
}
