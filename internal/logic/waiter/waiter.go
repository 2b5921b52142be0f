package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"token-giveaway-sol/internal/chain"
	"token-giveaway-sol/pkg/logger"
)

// ErrWaitTimeout 表示等待出块在限定时间内未完成。
var ErrWaitTimeout = errors.New("wait for blocks timed out")

// Waiter 阻塞等待链上高度超过参考点指定区块数。
// 刚落地的账户（如新建查找表）需要若干新区块后才能通过读路径稳定解析。
type Waiter struct {
	client   chain.Client
	interval time.Duration
	timeout  time.Duration
}

func New(client chain.Client, interval, timeout time.Duration) *Waiter {
	return &Waiter{
		client:   client,
		interval: interval,
		timeout:  timeout,
	}
}

// WaitForBlocks 捕获当前高度作为参考点，轮询直到高度 > 参考点 + n，返回最后观测到的高度。
// 超过 timeout 返回 ErrWaitTimeout；ctx 取消返回 ctx.Err()。
func (w *Waiter) WaitForBlocks(ctx context.Context, n uint64) (uint64, error) {
	ref, err := w.client.BlockHeight(ctx)
	if err != nil {
		return 0, err
	}
	logger.Infof("[Waiter] 等待出块: ref=%d n=%d", ref, n)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return 0, fmt.Errorf("%w: ref=%d n=%d", ErrWaitTimeout, ref, n)
			}
			return 0, ctx.Err()
		case <-ticker.C:
		}

		height, err := w.client.BlockHeight(ctx)
		if err != nil {
			// tick 与超时同时就绪时，高度查询可能先带出底层 ctx 错误；
			// 超时语义以 ErrWaitTimeout 为准。
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return 0, fmt.Errorf("%w: ref=%d n=%d", ErrWaitTimeout, ref, n)
			}
			return 0, err
		}
		if height > ref+n {
			logger.Infof("[Waiter] 出块等待完成: height=%d", height)
			return height, nil
		}
	}
}
