package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
)

// Request 一次 LLM 调用的输入
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Response LLM 调用结果，token 用量供成本核算
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Client 对话模型的统一入口。失败以 model.ProviderError 分类返回
type Client interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// NewClient 根据配置创建 LLM 客户端
func NewClient(ctx context.Context, cfg *config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(ctx, cfg)
	case "gemini":
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// CleanJSON 去掉模型输出中常见的 markdown 代码块包装
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
