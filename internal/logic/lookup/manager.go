package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/address_lookup_table"
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"token-giveaway-sol/internal/chain"
	"token-giveaway-sol/internal/logic/assembler"
	"token-giveaway-sol/internal/logic/core"
	"token-giveaway-sol/internal/types"
	"token-giveaway-sol/pkg/logger"
)

var (
	// ErrNoRecentSlot 表示节点回看窗口内没有任何历史区块，建表无法锚定，流程性致命错误。
	ErrNoRecentSlot = errors.New("no recent slot available for lookup table anchor")
	// ErrTableNotResolved 表示建表后通过读路径拿不到表内容（账户缺失或地址为空）。
	ErrTableNotResolved = errors.New("lookup table not resolved")
)

// Manager 负责地址查找表的创建、扩展与解析。
// 建表锚定在一个足够旧、不可分叉的 slot 上，否则会被程序拒绝。
type Manager struct {
	client       chain.Client
	asm          *assembler.Assembler
	lookback     uint64
	maxPerExtend int
}

func New(client chain.Client, asm *assembler.Assembler, lookback uint64, maxPerExtend int) *Manager {
	return &Manager{
		client:       client,
		asm:          asm,
		lookback:     lookback,
		maxPerExtend: maxPerExtend,
	}
}

// CreateAndExtend 创建查找表并写入地址集合，返回表地址。
// create 与 extend 指令合并为一个批次提交；该批次只能直接编码——表此刻尚不存在，无法引用自身。
// 返回时表内容尚不保证对读路径可见，调用方需先等待出块再 Resolve。
func (m *Manager) CreateAndExtend(ctx context.Context, authority sdktypes.Account, addrs []types.Pubkey) (common.PublicKey, error) {
	slot, err := m.client.Slot(ctx)
	if err != nil {
		return common.PublicKey{}, err
	}

	start := uint64(0)
	if slot > m.lookback {
		start = slot - m.lookback
	}
	blocks, err := m.client.Blocks(ctx, start, slot)
	if err != nil {
		return common.PublicKey{}, err
	}
	if len(blocks) == 0 {
		return common.PublicKey{}, fmt.Errorf("%w: window=[%d,%d]", ErrNoRecentSlot, start, slot)
	}
	anchor := blocks[0]

	// 表地址由 (authority, anchor slot) 确定性派生，交易落地前即可知
	tableAddr, bump := address_lookup_table.DeriveLookupTableAddress(authority.PublicKey, anchor)
	logger.Infof("[Lookup] 创建查找表: table=%s anchor=%d addrs=%d", tableAddr.ToBase58(), anchor, len(addrs))

	batch := core.NewBatch()
	batch.Add(address_lookup_table.CreateLookupTable(address_lookup_table.CreateLookupTableParams{
		LookupTable: tableAddr,
		Authority:   authority.PublicKey,
		Payer:       authority.PublicKey,
		RecentSlot:  anchor,
		BumpSeed:    bump,
	}))

	payer := authority.PublicKey
	sdkAddrs := types.PubkeysToSDK(addrs)
	for len(sdkAddrs) > 0 {
		n := min(len(sdkAddrs), m.maxPerExtend)
		batch.Add(address_lookup_table.ExtendLookupTable(address_lookup_table.ExtendLookupTableParams{
			LookupTable: tableAddr,
			Authority:   authority.PublicKey,
			Payer:       &payer,
			Addresses:   sdkAddrs[:n],
		}))
		sdkAddrs = sdkAddrs[n:]
	}

	if _, err := m.asm.BuildAndSubmit(ctx, authority, batch, nil); err != nil {
		return common.PublicKey{}, fmt.Errorf("create lookup table failed: %w", err)
	}
	return tableAddr, nil
}

// Resolve 按表地址拉取并反序列化查找表账户。
// 账户缺失、所有者非查找表程序、地址列表为空均视为未解析成功，返回 ErrTableNotResolved。
func (m *Manager) Resolve(ctx context.Context, tableAddr common.PublicKey) (sdktypes.AddressLookupTableAccount, error) {
	info, err := m.client.Account(ctx, tableAddr)
	if err != nil {
		return sdktypes.AddressLookupTableAccount{}, err
	}
	if len(info.Data) == 0 {
		return sdktypes.AddressLookupTableAccount{}, fmt.Errorf("%w: table=%s account missing", ErrTableNotResolved, tableAddr.ToBase58())
	}
	if info.Owner != common.AddressLookupTableProgramID {
		return sdktypes.AddressLookupTableAccount{}, fmt.Errorf("%w: table=%s unexpected owner %s", ErrTableNotResolved, tableAddr.ToBase58(), info.Owner.ToBase58())
	}

	state, err := address_lookup_table.DeserializeLookupTable(info.Data, info.Owner)
	if err != nil {
		return sdktypes.AddressLookupTableAccount{}, fmt.Errorf("deserialize lookup table failed: table=%s err=%w", tableAddr.ToBase58(), err)
	}
	if len(state.Addresses) == 0 {
		return sdktypes.AddressLookupTableAccount{}, fmt.Errorf("%w: table=%s empty addresses", ErrTableNotResolved, tableAddr.ToBase58())
	}
	logger.Infof("[Lookup] 查找表解析成功: table=%s addrs=%d", tableAddr.ToBase58(), len(state.Addresses))
	return sdktypes.AddressLookupTableAccount{Key: tableAddr, Addresses: state.Addresses}, nil
}
