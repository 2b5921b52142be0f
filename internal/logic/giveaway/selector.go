package giveaway

import (
	"math/rand"

	"token-giveaway-sol/internal/types"
)

// SelectWinners 从候选列表中无放回地等概率抽取 k 个地址：整体洗牌后取前 k。
// 随机源由调用方注入（可固定种子复现抽取结果）。非加密随机，仅适合演示性抽奖。
func SelectWinners(r *rand.Rand, candidates []types.Pubkey, k int) []types.Pubkey {
	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return nil
	}
	shuffled := make([]types.Pubkey, len(candidates))
	copy(shuffled, candidates)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:k]
}
