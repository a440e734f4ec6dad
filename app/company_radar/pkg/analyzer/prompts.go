package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

const systemPrompt = "你是一个 JSON 生成器。请只输出 JSON 字符串，不要包含任何 markdown 标记。"

// 各维度的分析指令。要求结构化 JSON，数字保留原始单位并尽量附 USD 换算
var facetInstructions = map[model.Facet]string{
	model.FacetFinancial:   "你是一位资深财务分析师。请基于文档总结该公司的财务表现：营收、利润、增长率、现金流等。findings 中给出关键财务指标，数值保留原始币种单位，可能时附上 USD 换算值。",
	model.FacetMarket:      "你是一位市场研究分析师。请总结该公司的市场地位：市场份额、行业规模、增长趋势、目标客群。findings 中给出可量化的市场指标。",
	model.FacetESG:         "你是一位 ESG 研究员。请总结该公司在环境、社会责任与治理方面的表现与争议。findings 中列出具体的 ESG 事实。",
	model.FacetBrand:       "你是一位品牌战略顾问。请总结该公司的品牌形象、知名度、口碑与营销动作。findings 中列出具体证据。",
	model.FacetCompetitive: "你是一位竞争情报分析师。请总结该公司的主要竞争对手与竞争优劣势。findings 中以对手名为键给出对比要点。",
	model.FacetRisk:        "你是一位风险分析师。请识别该公司面临的经营、财务、法律与市场风险。findings 中按风险类型列出具体风险点。",
}

const thesisInstruction = "你是一位投资研究总监。请综合以下各维度的分析结论，给出该公司的投资论点：看多/看空理由、关键催化剂、估值视角。findings 中给出支撑论点的量化依据。"

const synthesisInstruction = "你是一位研究报告主编。请将以下各维度的分析结论整合为一段面向决策者的执行摘要，突出最重要的事实与数字。findings 中给出 3-5 条最关键的结论。"

const outputFormat = `请务必严格按照以下 JSON 格式返回：
{
	"summary": "该维度的总结（Markdown格式，200字左右）",
	"findings": {"指标或要点": "带原始单位的具体数值或事实"},
	"confidence": 0.8
}
confidence 为 0-1 的小数，代表你对结论可靠性的估计。`

// buildFacetPrompt 构造独立维度的用户提示词：目标 + 文档 + 上一轮结论（若有）
func buildFacetPrompt(target model.ResearchTarget, facet model.Facet, docs []model.SourceDocument, prior *model.AnalysisSection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "研究目标：%s\n\n以下是检索到的相关文档：\n\n", target.Identifier)
	for i, d := range docs {
		fmt.Fprintf(&sb, "文档 %d:\n标题: %s\n来源: %s\n内容: %s\n\n", i+1, d.Title, d.URL, d.Text())
	}

	if !prior.Empty() {
		sb.WriteString("上一轮该维度的分析结论（请在其基础上补充与修正，而非重复）：\n")
		sb.WriteString(prior.Summary)
		sb.WriteString("\n\n")
	}

	sb.WriteString(facetInstructions[facet])
	sb.WriteString("\n\n")
	sb.WriteString(outputFormat)
	return sb.String()
}

// buildFanInPrompt 构造 thesis/synthesis 的提示词，输入为其余维度的分析结论
func buildFanInPrompt(target model.ResearchTarget, facet model.Facet, sections map[model.Facet]*model.AnalysisSection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "研究目标：%s\n\n以下是各维度的分析结论：\n\n", target.Identifier)

	for _, f := range model.IndependentFacets {
		sec, ok := sections[f]
		if !ok || sec.Empty() {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n%s\n", f, sec.Summary)
		if len(sec.Findings) > 0 {
			keys := make([]string, 0, len(sec.Findings))
			for k := range sec.Findings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&sb, "- %s: %s\n", k, sec.Findings[k])
			}
		}
		sb.WriteString("\n")
	}

	if facet == model.FacetThesis {
		sb.WriteString(thesisInstruction)
	} else {
		sb.WriteString(synthesisInstruction)
	}
	sb.WriteString("\n\n")
	sb.WriteString(outputFormat)
	return sb.String()
}
