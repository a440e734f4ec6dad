package retry

import (
	"context"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
)

// Policy 重试策略。延迟按 Delay * Backoff^attempt 递增
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64
}

// DefaultPolicy 默认策略：最多 3 次，5s 起步，每次翻倍
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: 5 * time.Second, Backoff: 2}

func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 1 {
		p.Backoff = 1
	}
	return p
}

// delayFor 第 attempt 次失败后的等待时长（attempt 从 0 开始）
func (p Policy) delayFor(attempt int) time.Duration {
	d := float64(p.Delay)
	for i := 0; i < attempt; i++ {
		d *= p.Backoff
	}
	return time.Duration(d)
}

// Do 以给定策略执行 fn。仅对瞬时失败重试；
// 鉴权、请求格式等非瞬时错误立即返回。context 取消会中断等待
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.normalize()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.delayFor(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !model.IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// DoValue 带返回值的重试封装
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
