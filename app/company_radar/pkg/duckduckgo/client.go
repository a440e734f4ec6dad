package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/search"
)

const baseURL = "https://html.duckduckgo.com/html/"

// Client 基于 DuckDuckGo HTML 页面的兜底搜索源，无需 API Key
type Client struct {
	client *http.Client
}

// NewClient 创建 DuckDuckGo 客户端
func NewClient(timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		client: &http.Client{Timeout: t},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

func (c *Client) Name() string { return "duckduckgo" }

// Search 抓取结果页并解析出标题、链接和摘要
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	form := url.Values{}
	form.Set("q", req.Query)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo error (status %d)", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html failed: %w", err)
	}

	var results []search.Result
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if req.MaxResults > 0 && len(results) >= req.MaxResults {
			return false
		}

		link := s.Find("a.result__a")
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		results = append(results, search.Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     cleanURL(href),
			Content: strings.TrimSpace(s.Find("a.result__snippet").Text()),
		})
		return true
	})

	return &search.Response{Results: results}, nil
}

// cleanURL DuckDuckGo 的结果链接经过跳转包装，取出 uddg 参数中的原始地址
func cleanURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if raw := u.Query().Get("uddg"); raw != "" {
		if decoded, err := url.QueryUnescape(raw); err == nil {
			return decoded
		}
	}
	if u.Scheme == "" {
		return "https:" + href
	}
	return href
}
