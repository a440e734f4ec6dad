package search

import "context"

// Searcher 定义通用的搜索接口
type Searcher interface {
	// Name 返回提供商标识，用于日志与来源记录
	Name() string
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query      string
	MaxResults int
}

// Response 通用搜索响应，Results 保持提供商的相关度排序
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}
