package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTarget 目标标识为空或无法解析，不创建会话
var ErrInvalidTarget = errors.New("invalid research target")

// ErrMalformedOutput 模型输出无法按约定格式解析。
// 属于可重试失败（换一次采样通常能拿到合法 JSON）
var ErrMalformedOutput = errors.New("malformed llm output")

// ProviderErrorKind 外部调用失败类别
type ProviderErrorKind string

const (
	KindRateLimited ProviderErrorKind = "rate_limited"
	KindTimeout     ProviderErrorKind = "timeout"
	KindConnReset   ProviderErrorKind = "conn_reset"
	KindAuth        ProviderErrorKind = "auth"
	KindMalformed   ProviderErrorKind = "malformed"
)

// ProviderError 搜索/LLM 等外部调用失败
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient 是否属于可重试的瞬时失败
func (e *ProviderError) Transient() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindConnReset:
		return true
	}
	return false
}

// AnalysisError 单个分析器失败，触发模板降级而非中止会话
type AnalysisError struct {
	Facet Facet
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyzer %s: %v", e.Facet, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// IsTransient 判断错误是否可重试。优先走类型判断，
// 对未包装的原始错误退回到报文特征识别（与上游 SDK 的错误风格保持兼容）
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedOutput) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"):
		return true
	case strings.Contains(msg, "status 5"), strings.Contains(msg, "503"), strings.Contains(msg, "502"):
		return true
	}
	return false
}

// ClassifyProviderError 将原始错误归入失败类别
func ClassifyProviderError(provider string, err error) *ProviderError {
	kind := KindMalformed
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "rate limit"):
		kind = KindRateLimited
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		kind = KindTimeout
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "eof"):
		kind = KindConnReset
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(msg, "unauthorized"), strings.Contains(msg, "api key"):
		kind = KindAuth
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}
