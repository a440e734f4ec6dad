package planner

import (
	"fmt"
	"strings"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// Planner 查询规划器：首轮覆盖固定维度，补查轮按缺口定向生成
type Planner struct {
	numQueries int
}

// New 创建规划器，numQueries 限制首轮基础查询数量
func New(numQueries int) *Planner {
	if numQueries < 1 {
		numQueries = 5
	}
	return &Planner{numQueries: numQueries}
}

// 首轮各检索维度的英文查询模板
var facetTemplates = map[model.QueryFacet]string{
	model.QueryOverview:   "%s company overview",
	model.QueryFinancial:  "%s financial performance revenue profit",
	model.QueryProduct:    "%s products and services",
	model.QueryMarket:     "%s market position industry share",
	model.QueryNews:       "%s latest news",
	model.QueryLeadership: "%s CEO leadership management team",
}

// 非英语主导地区的本地化查询模板，与英文查询并行发出
var localeTemplates = map[string]map[model.QueryFacet]string{
	"zh": {
		model.QueryOverview:   "%s 公司简介",
		model.QueryFinancial:  "%s 财报 营收 利润",
		model.QueryProduct:    "%s 产品 业务",
		model.QueryMarket:     "%s 市场地位 行业份额",
		model.QueryNews:       "%s 最新动态",
		model.QueryLeadership: "%s 管理层 高管",
	},
	"ja": {
		model.QueryOverview:   "%s 会社概要",
		model.QueryFinancial:  "%s 決算 売上高",
		model.QueryProduct:    "%s 製品 サービス",
		model.QueryMarket:     "%s 市場シェア",
		model.QueryNews:       "%s 最新ニュース",
		model.QueryLeadership: "%s 経営陣",
	},
	"ko": {
		model.QueryOverview:   "%s 회사 개요",
		model.QueryFinancial:  "%s 실적 매출",
		model.QueryProduct:    "%s 제품 서비스",
		model.QueryMarket:     "%s 시장 점유율",
		model.QueryNews:       "%s 최신 뉴스",
		model.QueryLeadership: "%s 경영진",
	},
	"de": {
		model.QueryOverview:   "%s Unternehmensprofil",
		model.QueryFinancial:  "%s Geschäftsbericht Umsatz",
		model.QueryProduct:    "%s Produkte Dienstleistungen",
		model.QueryMarket:     "%s Marktposition",
		model.QueryNews:       "%s aktuelle Nachrichten",
		model.QueryLeadership: "%s Vorstand Geschäftsführung",
	},
	"fr": {
		model.QueryOverview:   "%s profil de l'entreprise",
		model.QueryFinancial:  "%s résultats financiers chiffre d'affaires",
		model.QueryProduct:    "%s produits et services",
		model.QueryMarket:     "%s position sur le marché",
		model.QueryNews:       "%s actualités",
		model.QueryLeadership: "%s direction dirigeants",
	},
}

// 地区到主要语言的映射。命中即视为非英语主导辖区
var regionLanguages = map[string]string{
	"cn": "zh", "tw": "zh", "hk": "zh",
	"jp": "ja",
	"kr": "ko",
	"de": "de", "at": "de", "ch": "de",
	"fr": "fr",
}

// PlanInitial 生成首轮查询：固定维度的英文查询（数量受限），
// 非英语主导地区再为相同维度补充本地语言变体
func (p *Planner) PlanInitial(target model.ResearchTarget) ([]model.SearchQuery, error) {
	name := strings.TrimSpace(target.Identifier)
	if name == "" {
		return nil, fmt.Errorf("%w: 目标标识为空", model.ErrInvalidTarget)
	}

	facets := model.QueryFacets
	if len(facets) > p.numQueries {
		facets = facets[:p.numQueries]
	}

	var queries []model.SearchQuery
	seen := make(map[string]bool)
	add := func(q model.SearchQuery) {
		if !seen[q.Text] {
			seen[q.Text] = true
			queries = append(queries, q)
		}
	}

	for _, f := range facets {
		add(model.SearchQuery{
			Text:  fmt.Sprintf(facetTemplates[f], name),
			Facet: f,
		})
	}

	lang := p.localeOf(target)
	if tpls, ok := localeTemplates[lang]; ok {
		for _, f := range facets {
			add(model.SearchQuery{
				Text:   fmt.Sprintf(tpls[f], name),
				Facet:  f,
				Locale: lang,
			})
		}
		logger.Log.Infof("目标位于非英语主导地区 [%s]，已追加 %s 本地化查询", target.Region, lang)
	}

	return queries, nil
}

// PlanGapFill 按缺口列表生成补查：每个缺口至多一条，
// 与会话内已发出的查询逐字节比对去重
func (p *Planner) PlanGapFill(target model.ResearchTarget, gaps []model.MissingInformationGap, issued map[string]bool) []model.SearchQuery {
	name := strings.TrimSpace(target.Identifier)
	var queries []model.SearchQuery
	seen := make(map[string]bool)

	for _, gap := range gaps {
		text := strings.TrimSpace(gap.SuggestedQuery)
		if text == "" {
			text = fmt.Sprintf("%s %s details", name, gap.Facet)
		}
		if issued[text] || seen[text] {
			continue
		}
		seen[text] = true
		queries = append(queries, model.SearchQuery{
			Text:  text,
			Facet: model.QueryFacet(gap.Facet),
		})
	}
	return queries
}

func (p *Planner) localeOf(target model.ResearchTarget) string {
	if target.Language != "" {
		return strings.ToLower(strings.SplitN(target.Language, "-", 2)[0])
	}
	return regionLanguages[strings.ToLower(target.Region)]
}
