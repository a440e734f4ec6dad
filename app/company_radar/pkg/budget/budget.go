package budget

import (
	"sync"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
)

// Tracker 按会话累计成本与耗时。
// 成本上限是软约束（仅告警），时间上限是硬约束（下个迭代边界强制结束）
type Tracker struct {
	mu          sync.Mutex
	startedAt   time.Time
	costUSD     float64
	llmCalls    int
	searchCalls int
	warned      bool

	targetCostUSD float64
	maxElapsed    time.Duration
	priceInPer1K  float64
	priceOutPer1K float64
	searchCost    float64

	now func() time.Time // 测试注入
}

// NewTracker 创建成本跟踪器，计时从创建时刻开始
func NewTracker(targetCostUSD float64, maxElapsed time.Duration, priceInPer1K, priceOutPer1K, searchCostPerQuery float64) *Tracker {
	t := &Tracker{
		targetCostUSD: targetCostUSD,
		maxElapsed:    maxElapsed,
		priceInPer1K:  priceInPer1K,
		priceOutPer1K: priceOutPer1K,
		searchCost:    searchCostPerQuery,
		now:           time.Now,
	}
	t.startedAt = t.now()
	return t
}

// AddLLMUsage 记录一次 LLM 调用的 token 用量
func (t *Tracker) AddLLMUsage(promptTokens, completionTokens int) float64 {
	cost := float64(promptTokens)/1000*t.priceInPer1K + float64(completionTokens)/1000*t.priceOutPer1K
	t.mu.Lock()
	t.llmCalls++
	t.costUSD += cost
	t.mu.Unlock()
	t.warnIfOverCost()
	return cost
}

// AddSearch 记录一次搜索调用
func (t *Tracker) AddSearch() {
	t.mu.Lock()
	t.searchCalls++
	t.costUSD += t.searchCost
	t.mu.Unlock()
	t.warnIfOverCost()
}

// CostUSD 当前累计成本估算
func (t *Tracker) CostUSD() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.costUSD
}

// Elapsed 会话已耗时
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.startedAt)
}

// Remaining 距硬性时间上限的剩余时长
func (t *Tracker) Remaining() time.Duration {
	return t.maxElapsed - t.Elapsed()
}

// BudgetExceeded 硬性时间上限是否已超出，迭代边界处检查
func (t *Tracker) BudgetExceeded() bool {
	return t.maxElapsed > 0 && t.Elapsed() >= t.maxElapsed
}

// Calls 返回 (LLM 调用数, 搜索调用数)
func (t *Tracker) Calls() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.llmCalls, t.searchCalls
}

// 成本越线只告警一次，不中断循环
func (t *Tracker) warnIfOverCost() {
	t.mu.Lock()
	over := t.targetCostUSD > 0 && t.costUSD > t.targetCostUSD && !t.warned
	if over {
		t.warned = true
	}
	cost := t.costUSD
	t.mu.Unlock()
	if over {
		logger.Log.Warnf("累计成本已超出目标预算: $%.4f > $%.4f", cost, t.targetCostUSD)
	}
}
