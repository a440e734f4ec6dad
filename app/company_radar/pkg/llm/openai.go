package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// OpenAI 基于 eino 的 OpenAI 兼容接口客户端
type OpenAI struct {
	chatModel einomodel.ChatModel
}

// NewOpenAI 初始化 OpenAI 兼容客户端（任意兼容 base_url 均可）
func NewOpenAI(ctx context.Context, cfg *config.LLMConfig) (*OpenAI, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return &OpenAI{chatModel: chatModel}, nil
}

var _ Client = (*OpenAI)(nil)

func (c *OpenAI) Name() string { return "openai" }

func (c *OpenAI) Generate(ctx context.Context, req *Request) (*Response, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: req.System},
		{Role: schema.User, Content: req.User},
	}

	var opts []einomodel.Option
	if req.Temperature > 0 {
		opts = append(opts, einomodel.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, model.ClassifyProviderError("openai", err)
	}

	out := &Response{Content: resp.Content}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		out.PromptTokens = resp.ResponseMeta.Usage.PromptTokens
		out.CompletionTokens = resp.ResponseMeta.Usage.CompletionTokens
	}
	return out, nil
}
