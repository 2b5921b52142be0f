package core

import (
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"token-giveaway-sol/internal/types"
)

// Batch 表示一组有序指令及其触达的全部去重地址（含程序地址）。
// 地址集合直接从指令本身抽取，保证查找表覆盖批次内的每一个账户；
// 漏掉任何账户都会使压缩静默退化为直接编码。
type Batch struct {
	instructions []sdktypes.Instruction
	addrSet      map[types.Pubkey]struct{}
	addrOrder    []types.Pubkey // 首次出现顺序，索引分配依赖该顺序
}

func NewBatch() *Batch {
	return &Batch{
		addrSet: make(map[types.Pubkey]struct{}),
	}
}

// Add 追加一条指令，并把其触达的所有账户与程序地址并入地址集合。
func (b *Batch) Add(ix sdktypes.Instruction) {
	b.instructions = append(b.instructions, ix)
	b.record(types.PubkeyFromSDK(ix.ProgramID))
	for _, meta := range ix.Accounts {
		b.record(types.PubkeyFromSDK(meta.PubKey))
	}
}

func (b *Batch) record(p types.Pubkey) {
	if _, ok := b.addrSet[p]; ok {
		return
	}
	b.addrSet[p] = struct{}{}
	b.addrOrder = append(b.addrOrder, p)
}

// Instructions 返回指令列表，保持加入顺序。
func (b *Batch) Instructions() []sdktypes.Instruction {
	return b.instructions
}

// Addresses 返回去重后的地址集合，按首次出现顺序。
func (b *Batch) Addresses() []types.Pubkey {
	return b.addrOrder
}

// Contains 判断地址是否被该批次触达。
func (b *Batch) Contains(p types.Pubkey) bool {
	_, ok := b.addrSet[p]
	return ok
}

func (b *Batch) Len() int {
	return len(b.instructions)
}
