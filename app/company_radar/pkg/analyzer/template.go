package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// LLM 不可用时的降级提取规则
var (
	moneyExpr = regexp.MustCompile(`[$€£¥][\d,.]+\s*(?:billion|million|trillion|bn|mn|[BMT])?|[\d,.]+\s*(?:billion|million|trillion)\s*(?:USD|EUR|GBP|JPY|CNY|dollars|euros|元|亿元|万元)?`)
	percExpr  = regexp.MustCompile(`[\d.]+\s*%`)
	dateExpr  = regexp.MustCompile(`\b(?:19|20)\d{2}\b|\b(?:Q[1-4])\s*(?:19|20)\d{2}\b`)
	nameExpr  = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+){0,2}(?:\s+(?:Inc|Corp|Ltd|LLC|Group|Co)\.?)?\b`)
)

const degradedConfidence = 0.3

// templateExtract LLM 重试耗尽后的模板降级：
// 从标题与摘要中模式匹配数字、日期和实体名，拼出非空的占位分析。
// 产出打上 degraded 标记并压低置信度，保证会话仍可收敛到 done
func templateExtract(target model.ResearchTarget, facet model.Facet, docs []model.SourceDocument) *model.AnalysisSection {
	findings := make(map[string]string)

	var numbers, dates, names []string
	var titles []string
	for _, d := range docs {
		text := d.Title + " " + d.Text()
		numbers = appendLimited(numbers, moneyExpr.FindAllString(text, -1), 8)
		numbers = appendLimited(numbers, percExpr.FindAllString(text, -1), 8)
		dates = appendLimited(dates, dateExpr.FindAllString(text, -1), 6)
		names = appendLimited(names, filterNames(nameExpr.FindAllString(d.Title, -1), target.Identifier), 6)
		if len(titles) < 5 {
			titles = append(titles, d.Title)
		}
	}

	if len(numbers) > 0 {
		findings["numeric_mentions"] = strings.Join(dedup(numbers), "; ")
	}
	if len(dates) > 0 {
		findings["date_mentions"] = strings.Join(dedup(dates), "; ")
	}
	if len(names) > 0 {
		findings["entity_mentions"] = strings.Join(dedup(names), "; ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "（模板降级产出）LLM 暂不可用，以下为 %s 维度的原始素材摘录：\n", facet)
	for _, t := range titles {
		fmt.Fprintf(&sb, "- %s\n", t)
	}
	if len(titles) == 0 {
		sb.WriteString("- 本轮未检索到该维度的有效文档\n")
	}

	urls := make([]string, 0, len(docs))
	for _, d := range docs {
		urls = append(urls, d.URL)
	}

	return &model.AnalysisSection{
		Facet:       facet,
		Summary:     sb.String(),
		Findings:    findings,
		Confidence:  degradedConfidence,
		Degraded:    true,
		SourceURLs:  urls,
		GeneratedAt: time.Now(),
	}
}

func appendLimited(dst []string, src []string, limit int) []string {
	for _, s := range src {
		if len(dst) >= limit {
			break
		}
		dst = append(dst, strings.TrimSpace(s))
	}
	return dst
}

// filterNames 去掉目标公司自身与常见噪声词
func filterNames(names []string, self string) []string {
	var out []string
	selfLower := strings.ToLower(self)
	for _, n := range names {
		l := strings.ToLower(n)
		if l == selfLower || len(n) < 3 {
			continue
		}
		switch l {
		case "the", "this", "new", "inc", "corp", "ltd":
			continue
		}
		out = append(out, n)
	}
	return out
}

func dedup(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
