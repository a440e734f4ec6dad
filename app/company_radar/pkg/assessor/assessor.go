package assessor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// Assessor 质量评估器。规则化评分：
// 完整度（各维度是否齐备）、准确度（跨维度数字是否自洽）、
// 深度（有出处、带日期、可量化的细节密度）。
// 评分从严：全部为叙述性文字且无任何数字的报告不超过 49 分
type Assessor struct {
	weights    config.RubricWeights
	threshold  float64
	facetFloor float64
}

// New 创建评估器。权重已在配置加载时校验过和为 100
func New(weights config.RubricWeights, threshold, facetFloor float64) *Assessor {
	return &Assessor{weights: weights, threshold: threshold, facetFloor: facetFloor}
}

var (
	quantExpr = regexp.MustCompile(`[$€£¥][\d,.]+|[\d,.]+\s*(?:%|billion|million|trillion|亿|万)|\d+\.\d+`)
	yearExpr  = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	numExpr   = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
)

// 缺口对应的补查种子模板
var gapQueryTemplates = map[model.Facet]string{
	model.FacetFinancial:   "%s annual report revenue figures",
	model.FacetMarket:      "%s market share statistics",
	model.FacetESG:         "%s ESG sustainability report",
	model.FacetBrand:       "%s brand reputation survey",
	model.FacetCompetitive: "%s competitors comparison",
	model.FacetRisk:        "%s risk factors regulatory issues",
	model.FacetThesis:      "%s valuation analyst rating",
	model.FacetSynthesis:   "%s company analysis summary",
}

// Assess 对当前全部维度的分析结果打分并产出缺口列表
func (a *Assessor) Assess(target model.ResearchTarget, sections map[model.Facet]*model.AnalysisSection) *model.QualityAssessment {
	perFacet := make(map[model.Facet]float64, len(model.AnalysisFacets))
	for _, f := range model.AnalysisFacets {
		perFacet[f] = facetCompleteness(sections[f])
	}

	completeness := a.weights.Completeness * average(perFacet)
	accuracy := a.scoreAccuracy(sections)
	depth := a.scoreDepth(sections)

	score := completeness + accuracy + depth

	// 从严规则：没有任何量化事实的报告无论篇幅多长都不及格
	if !hasAnyQuantSignal(sections) {
		if score > 49 {
			score = 49
		}
		logger.Log.Warnf("报告无任何量化事实，评分受限: %.1f", score)
	}

	gaps := a.collectGaps(target, perFacet)

	return &model.QualityAssessment{
		Score:        score,
		Completeness: completeness,
		Accuracy:     accuracy,
		Depth:        depth,
		Gaps:         gaps,
		Passed:       score >= a.threshold,
		AssessedAt:   time.Now(),
	}
}

// facetCompleteness 单维度完整度 [0,1]
func facetCompleteness(sec *model.AnalysisSection) float64 {
	if sec.Empty() {
		return 0
	}
	score := 0.5
	if len(sec.Findings) >= 2 {
		score += 0.2
	}
	if quantExpr.MatchString(sectionText(sec)) {
		score += 0.2
	}
	if !sec.Degraded {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// scoreAccuracy 准确度：满分起步，发现跨维度矛盾数字与降级产出时扣分
func (a *Assessor) scoreAccuracy(sections map[model.Facet]*model.AnalysisSection) float64 {
	score := a.weights.Accuracy

	// 同名 finding 在不同维度给出不同数字视为矛盾
	type claim struct {
		facet model.Facet
		value string
	}
	claims := make(map[string][]claim)
	for f, sec := range sections {
		if sec.Empty() {
			continue
		}
		for k, v := range sec.Findings {
			key := strings.ToLower(strings.TrimSpace(k))
			claims[key] = append(claims[key], claim{facet: f, value: v})
		}
		if sec.Degraded {
			score -= 3
		}
	}

	for key, cs := range claims {
		if len(cs) < 2 {
			continue
		}
		base := numExpr.FindString(cs[0].value)
		for _, c := range cs[1:] {
			n := numExpr.FindString(c.value)
			if base != "" && n != "" && base != n {
				score -= 5
				logger.Log.Warnf("检测到矛盾数字 [%s]: %s(%s) vs %s(%s)", key, cs[0].facet, base, c.facet, n)
				break
			}
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// scoreDepth 深度：量化、带日期、有出处的维度占比加权
func (a *Assessor) scoreDepth(sections map[model.Facet]*model.AnalysisSection) float64 {
	total := float64(len(model.AnalysisFacets))
	var quant, dated, sourced float64
	for _, f := range model.AnalysisFacets {
		sec := sections[f]
		if sec.Empty() {
			continue
		}
		text := sectionText(sec)
		if quantExpr.MatchString(text) {
			quant++
		}
		if yearExpr.MatchString(text) {
			dated++
		}
		if len(sec.SourceURLs) > 0 && !sec.Degraded {
			sourced++
		}
	}
	frac := 0.5*(quant/total) + 0.25*(dated/total) + 0.25*(sourced/total)
	return a.weights.Depth * frac
}

// collectGaps 对低于下限的维度产出缺口，最严重的排在前面
func (a *Assessor) collectGaps(target model.ResearchTarget, perFacet map[model.Facet]float64) []model.MissingInformationGap {
	var gaps []model.MissingInformationGap
	for _, f := range model.AnalysisFacets {
		score := perFacet[f]
		if score >= a.facetFloor {
			continue
		}
		gaps = append(gaps, model.MissingInformationGap{
			Facet:          f,
			Description:    fmt.Sprintf("维度 [%s] 完整度 %.2f 低于下限 %.2f，缺少量化细节或内容为空", f, score, a.facetFloor),
			SuggestedQuery: fmt.Sprintf(gapQueryTemplates[f], target.Identifier),
		})
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return perFacet[gaps[i].Facet] < perFacet[gaps[j].Facet]
	})
	return gaps
}

func sectionText(sec *model.AnalysisSection) string {
	var sb strings.Builder
	sb.WriteString(sec.Summary)
	for k, v := range sec.Findings {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString(" ")
		sb.WriteString(v)
	}
	return sb.String()
}

func hasAnyQuantSignal(sections map[model.Facet]*model.AnalysisSection) bool {
	for _, sec := range sections {
		if !sec.Empty() && quantExpr.MatchString(sectionText(sec)) {
			return true
		}
	}
	return false
}

func average(m map[model.Facet]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}
