package budget

import (
	"math"
	"testing"
	"time"
)

func TestAddLLMUsage(t *testing.T) {
	tr := NewTracker(1, time.Hour, 0.001, 0.002, 0)

	cost := tr.AddLLMUsage(1000, 500)
	want := 0.001 + 0.001 // 1000 输入 + 500 输出
	if math.Abs(cost-want) > 1e-9 {
		t.Errorf("AddLLMUsage() = %v, want %v", cost, want)
	}
	if math.Abs(tr.CostUSD()-want) > 1e-9 {
		t.Errorf("CostUSD() = %v, want %v", tr.CostUSD(), want)
	}
}

func TestAddSearch(t *testing.T) {
	tr := NewTracker(1, time.Hour, 0, 0, 0.01)

	tr.AddSearch()
	tr.AddSearch()
	if math.Abs(tr.CostUSD()-0.02) > 1e-9 {
		t.Errorf("CostUSD() = %v, want 0.02", tr.CostUSD())
	}

	llm, search := tr.Calls()
	if llm != 0 || search != 2 {
		t.Errorf("Calls() = (%d, %d), want (0, 2)", llm, search)
	}
}

func TestBudgetExceededByTime(t *testing.T) {
	tr := NewTracker(0, 10*time.Minute, 0, 0, 0)

	base := tr.startedAt
	tr.now = func() time.Time { return base.Add(5 * time.Minute) }
	if tr.BudgetExceeded() {
		t.Error("未到时间上限不应判定超限")
	}

	tr.now = func() time.Time { return base.Add(11 * time.Minute) }
	if !tr.BudgetExceeded() {
		t.Error("超过时间上限应判定超限")
	}
	if tr.Remaining() >= 0 {
		t.Errorf("Remaining() = %v, want 负数", tr.Remaining())
	}
}

func TestCostOverrunIsSoft(t *testing.T) {
	// 成本超出目标预算只告警，不影响超限判定
	tr := NewTracker(0.001, time.Hour, 1, 1, 0)

	tr.AddLLMUsage(10000, 10000)
	if tr.BudgetExceeded() {
		t.Error("成本越线是软约束，不应触发 BudgetExceeded")
	}
	if !tr.warned {
		t.Error("成本越线应记录告警标记")
	}
}
