package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: "test-key"
  model: "gpt-4o-mini"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Research.QualityThreshold != 85 {
		t.Errorf("quality_threshold 默认值 = %v, want 85", cfg.Research.QualityThreshold)
	}
	if cfg.Research.MaxIterations != 2 {
		t.Errorf("max_iterations 默认值 = %v, want 2", cfg.Research.MaxIterations)
	}
	if cfg.Research.NumSearchQueries != 5 {
		t.Errorf("num_search_queries 默认值 = %v, want 5", cfg.Research.NumSearchQueries)
	}
	if cfg.Search.ResultsPerQuery != 3 || cfg.Search.MaxResults != 15 {
		t.Errorf("搜索默认值 = %d/%d, want 3/15", cfg.Search.ResultsPerQuery, cfg.Search.MaxResults)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Backoff != 2 {
		t.Errorf("重试默认值 = %d/%.0f, want 3/2", cfg.Retry.MaxAttempts, cfg.Retry.Backoff)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("llm provider 默认值 = %q, want openai", cfg.LLM.Provider)
	}
	w := cfg.Research.Weights
	if w.Completeness+w.Accuracy+w.Depth != 100 {
		t.Errorf("默认权重之和 = %v, want 100", w.Completeness+w.Accuracy+w.Depth)
	}
}

func TestLoadConfigInvalidWeights(t *testing.T) {
	path := writeConfig(t, `
research:
  weights:
    completeness: 50
    accuracy: 30
    depth: 30
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("权重之和不为 100 时应报错")
	}
}

func TestLoadConfigInvalidThreshold(t *testing.T) {
	path := writeConfig(t, `
research:
  quality_threshold: 120
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("quality_threshold 超出范围时应报错")
	}
}

func TestLoadConfigUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: "azure"
`)
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "provider") {
		t.Errorf("未知 provider 应报错: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("文件不存在时应报错")
	}
}

func TestRetryDelayAndCacheTTL(t *testing.T) {
	r := RetryConfig{DelaySeconds: 2.5}
	if r.Delay().Milliseconds() != 2500 {
		t.Errorf("Delay() = %v", r.Delay())
	}
	c := CacheConfig{TTLSeconds: 60}
	if c.TTL().Seconds() != 60 {
		t.Errorf("TTL() = %v", c.TTL())
	}
}
