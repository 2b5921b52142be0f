// Package chaintest 提供 chain.Client 的内存实现，供单元测试脱离真实节点运行。
// 它会解码提交交易中的查找表与 SPL Token 指令，维护一个最小化的账本视图。
package chaintest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"token-giveaway-sol/internal/chain"
)

// SPL Token 指令判别码
var (
	tokenIxTransfer        = byte(3)
	tokenIxMintTo          = byte(7)
	tokenIxTransferChecked = byte(12)
)

// Fake 是脚本化的链客户端：高度随查询递增，提交的交易立即按指令语义入账。
type Fake struct {
	mu sync.Mutex

	height      uint64
	currentSlot uint64
	blockhash   string

	// LastValidDelta 决定每次 LatestBlockhash 给出的有效期窗口大小
	LastValidDelta uint64
	// FinalizeAfter 表示签名被轮询多少次后才视为 finalized
	FinalizeAfter int
	// DropAll 为 true 时所有签名永不 finalized，用于过期路径测试
	DropAll bool
	// EmptyBlocks 为 true 时 Blocks 返回空列表，用于空历史路径测试
	EmptyBlocks bool
	// FreezeHeight 为 true 时高度不再随查询推进，用于等待超时测试
	FreezeHeight bool

	Lamports      map[common.PublicKey]uint64
	TokenBalances map[common.PublicKey]uint64
	Accounts      map[common.PublicKey][]byte
	Owners        map[common.PublicKey]common.PublicKey

	SentTxs  []sdktypes.Transaction
	sigPolls map[string]int
	nextSig  int

	tables         map[common.PublicKey][]common.PublicKey
	tableAuthority map[common.PublicKey]common.PublicKey
}

func NewFake() *Fake {
	return &Fake{
		height:         100,
		currentSlot:    1000,
		blockhash:      sdktypes.NewAccount().PublicKey.ToBase58(),
		LastValidDelta: 150,
		Lamports:       make(map[common.PublicKey]uint64),
		TokenBalances:  make(map[common.PublicKey]uint64),
		Accounts:       make(map[common.PublicKey][]byte),
		Owners:         make(map[common.PublicKey]common.PublicKey),
		sigPolls:       make(map[string]int),
		tables:         make(map[common.PublicKey][]common.PublicKey),
		tableAuthority: make(map[common.PublicKey]common.PublicKey),
	}
}

func (f *Fake) LatestBlockhash(ctx context.Context) (chain.BlockRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return chain.BlockRef{
		Blockhash:            f.blockhash,
		LastValidBlockHeight: f.height + f.LastValidDelta,
	}, nil
}

// BlockHeight 每次查询高度 +1，模拟链上持续出块。
func (f *Fake) BlockHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.FreezeHeight {
		f.height++
	}
	return f.height, nil
}

func (f *Fake) Slot(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentSlot, nil
}

func (f *Fake) Blocks(ctx context.Context, start, end uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EmptyBlocks || end < start {
		return nil, nil
	}
	blocks := make([]uint64, 0, end-start+1)
	for s := start; s <= end; s++ {
		blocks = append(blocks, s)
	}
	return blocks, nil
}

func (f *Fake) Balance(ctx context.Context, addr common.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Lamports[addr], nil
}

func (f *Fake) TokenBalance(ctx context.Context, addr common.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TokenBalances[addr], nil
}

func (f *Fake) MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error) {
	return 1_000_000, nil
}

func (f *Fake) RequestAirdrop(ctx context.Context, addr common.PublicKey, lamports uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lamports[addr] += lamports
	return f.newSig(), nil
}

func (f *Fake) SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentTxs = append(f.SentTxs, tx)
	if err := f.apply(tx); err != nil {
		return "", err
	}
	return f.newSig(), nil
}

func (f *Fake) SignatureFinalized(ctx context.Context, sig string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DropAll {
		return false, nil
	}
	f.sigPolls[sig]++
	return f.sigPolls[sig] > f.FinalizeAfter, nil
}

func (f *Fake) Account(ctx context.Context, addr common.PublicKey) (chain.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if addrs, ok := f.tables[addr]; ok {
		return chain.AccountInfo{
			Owner: common.AddressLookupTableProgramID,
			Data:  encodeLookupTable(f.tableAuthority[addr], addrs),
		}, nil
	}
	return chain.AccountInfo{Owner: f.Owners[addr], Data: f.Accounts[addr]}, nil
}

// SetAccount 直接写入一个账户的所有者与数据，供构造异常账户的测试使用。
func (f *Fake) SetAccount(addr common.PublicKey, owner common.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Owners[addr] = owner
	f.Accounts[addr] = append([]byte(nil), data...)
}

// SetTable 直接写入一张查找表的内容，供不经过建表流程的测试使用。
func (f *Fake) SetTable(table common.PublicKey, addrs []common.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append([]common.PublicKey(nil), addrs...)
}

// TableAddresses 返回捕获到的查找表内容，按写入顺序。
func (f *Fake) TableAddresses(table common.PublicKey) []common.PublicKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.PublicKey(nil), f.tables[table]...)
}

func (f *Fake) newSig() string {
	f.nextSig++
	return fmt.Sprintf("fake-sig-%d", f.nextSig)
}

// apply 按编译后的指令语义更新账本视图。
func (f *Fake) apply(tx sdktypes.Transaction) error {
	msg := tx.Message
	keys, err := f.resolveAccountKeys(msg)
	if err != nil {
		return err
	}

	for _, ix := range msg.Instructions {
		program := keys[ix.ProgramIDIndex]
		switch program {
		case common.AddressLookupTableProgramID:
			f.applyLookupTableIx(keys, ix)
		case common.TokenProgramID:
			f.applyTokenIx(keys, ix)
		case common.SPLAssociatedTokenAccountProgramID:
			// accounts: [funder, ata, owner, mint, ...]
			ata := keys[ix.Accounts[1]]
			if _, ok := f.Accounts[ata]; !ok {
				f.Accounts[ata] = []byte{1}
				f.Owners[ata] = common.TokenProgramID
				f.TokenBalances[ata] = 0
			}
		}
	}
	return nil
}

// resolveAccountKeys 还原指令索引对应的完整地址列表：
// 静态地址 + 所有表的 writable 查找 + 所有表的 readonly 查找。
func (f *Fake) resolveAccountKeys(msg sdktypes.Message) ([]common.PublicKey, error) {
	keys := append([]common.PublicKey(nil), msg.Accounts...)
	for _, t := range msg.AddressLookupTables {
		content, ok := f.tables[t.AccountKey]
		if !ok {
			return nil, fmt.Errorf("unknown lookup table %s", t.AccountKey.ToBase58())
		}
		for _, idx := range t.WritableIndexes {
			keys = append(keys, content[idx])
		}
	}
	for _, t := range msg.AddressLookupTables {
		content := f.tables[t.AccountKey]
		for _, idx := range t.ReadonlyIndexes {
			keys = append(keys, content[idx])
		}
	}
	return keys, nil
}

func (f *Fake) applyLookupTableIx(keys []common.PublicKey, ix sdktypes.CompiledInstruction) {
	if len(ix.Data) < 4 {
		return
	}
	table := keys[ix.Accounts[0]]
	switch binary.LittleEndian.Uint32(ix.Data[:4]) {
	case 0: // create
		f.tables[table] = nil
		f.tableAuthority[table] = keys[ix.Accounts[1]]
	case 2: // extend: u32 判别码 + u64 地址数 + N×32 字节地址
		count := binary.LittleEndian.Uint64(ix.Data[4:12])
		for i := uint64(0); i < count; i++ {
			var p common.PublicKey
			copy(p[:], ix.Data[12+i*32:12+(i+1)*32])
			f.tables[table] = append(f.tables[table], p)
		}
	}
}

func (f *Fake) applyTokenIx(keys []common.PublicKey, ix sdktypes.CompiledInstruction) {
	if len(ix.Data) < 9 {
		return
	}
	amount := binary.LittleEndian.Uint64(ix.Data[1:9])
	switch ix.Data[0] {
	case tokenIxMintTo:
		// accounts: [mint, dest, authority]
		f.TokenBalances[keys[ix.Accounts[1]]] += amount
	case tokenIxTransfer:
		// accounts: [source, dest, authority]
		f.TokenBalances[keys[ix.Accounts[0]]] -= amount
		f.TokenBalances[keys[ix.Accounts[1]]] += amount
	case tokenIxTransferChecked:
		// accounts: [source, mint, dest, authority]
		f.TokenBalances[keys[ix.Accounts[0]]] -= amount
		f.TokenBalances[keys[ix.Accounts[2]]] += amount
	}
}

// encodeLookupTable 按链上查找表账户的固定布局编码状态（56 字节元数据 + 地址列表）。
func encodeLookupTable(authority common.PublicKey, addrs []common.PublicKey) []byte {
	data := make([]byte, 56+32*len(addrs))
	binary.LittleEndian.PutUint32(data[0:4], 1)                    // 已初始化
	binary.LittleEndian.PutUint64(data[4:12], math.MaxUint64)      // 未停用
	binary.LittleEndian.PutUint64(data[12:20], 0)                  // last extended slot
	data[20] = 0                                                   // last extended start index
	data[21] = 1                                                   // authority 存在
	copy(data[22:54], authority[:])
	for i, a := range addrs {
		copy(data[56+i*32:56+(i+1)*32], a[:])
	}
	return data
}
