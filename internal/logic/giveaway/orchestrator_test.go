package giveaway

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-giveaway-sol/internal/chain/chaintest"
	"token-giveaway-sol/internal/config"
	"token-giveaway-sol/internal/logic/assembler"
	"token-giveaway-sol/internal/logic/lookup"
	"token-giveaway-sol/internal/logic/waiter"
	"token-giveaway-sol/internal/token"
	"token-giveaway-sol/internal/types"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Normalize()
	c.GiveawayConf.RandomSeed = 42
	c.RpcConf.ConfirmPollMs = 1
	c.RpcConf.AirdropTimeoutS = 2
	c.WaitConf.PollIntervalMs = 1
	c.WaitConf.TimeoutS = 5
	return c
}

func newTestOrchestrator(cfg *config.Config, fake *chaintest.Fake) *Orchestrator {
	asm := assembler.New(fake, time.Duration(cfg.RpcConf.ConfirmPollMs)*time.Millisecond)
	lk := lookup.New(fake, asm, cfg.LookupConf.SlotLookback, cfg.LookupConf.MaxAddrsPerExtend)
	w := waiter.New(fake,
		time.Duration(cfg.WaitConf.PollIntervalMs)*time.Millisecond,
		time.Duration(cfg.WaitConf.TimeoutS)*time.Second)
	issuer := token.NewIssuer(fake, asm)
	return New(cfg, fake, asm, lk, w, issuer)
}

// 场景：20 个候选中抽 10 人，500 供应量每人转 2 个单位。
func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig()
	fake := chaintest.NewFake()
	o := newTestOrchestrator(cfg, fake)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.TableResolved, "查找表应在出块等待后可解析")

	// 中奖者数量与去重
	require.Len(t, result.Winners, 10)
	seen := make(map[types.Pubkey]struct{})
	for _, w := range result.Winners {
		_, dup := seen[w]
		assert.False(t, dup)
		seen[w] = struct{}{}
	}

	// 发放账户扣减 10×2，各中奖者到账 2
	assert.Equal(t, uint64(500-10*2), result.SourceBalance)
	require.Len(t, result.WinnerBalances, 10)
	for i, b := range result.WinnerBalances {
		assert.Equal(t, uint64(2), b, "中奖者 %d 余额不符", i)
	}

	// 压缩版本体积必须小于直接编码版本
	assert.Less(t, result.CompressedSize, result.DirectSize)
}

func TestRun_TableCoversEveryTransferAddress(t *testing.T) {
	cfg := testConfig()
	fake := chaintest.NewFake()
	o := newTestOrchestrator(cfg, fake)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	tableContent := fake.TableAddresses(result.Table)
	inTable := make(map[common.PublicKey]struct{}, len(tableContent))
	for _, a := range tableContent {
		inTable[a] = struct{}{}
	}

	// 转账批次触达的每个账户都必须进表，否则压缩会静默退化
	require.NotEmpty(t, tableContent)
	var checked int
	for _, tx := range fake.SentTxs {
		if len(tx.Message.AddressLookupTables) == 0 {
			continue
		}
		for _, a := range transferAccounts(t, tx, fake) {
			_, ok := inTable[a]
			assert.True(t, ok, "账户 %s 未进查找表", a.ToBase58())
			checked++
		}
	}
	assert.NotZero(t, checked, "压缩交易中应存在转账指令")
}

// transferAccounts 提取一笔交易中 TransferChecked 指令触达的账户。
func transferAccounts(t *testing.T, tx sdktypes.Transaction, fake *chaintest.Fake) []common.PublicKey {
	t.Helper()
	keys := append([]common.PublicKey(nil), tx.Message.Accounts...)
	for _, lt := range tx.Message.AddressLookupTables {
		content := fake.TableAddresses(lt.AccountKey)
		for _, idx := range lt.WritableIndexes {
			keys = append(keys, content[idx])
		}
	}
	for _, lt := range tx.Message.AddressLookupTables {
		content := fake.TableAddresses(lt.AccountKey)
		for _, idx := range lt.ReadonlyIndexes {
			keys = append(keys, content[idx])
		}
	}

	var out []common.PublicKey
	for _, ix := range tx.Message.Instructions {
		if keys[ix.ProgramIDIndex] != common.TokenProgramID || len(ix.Data) == 0 || ix.Data[0] != 12 {
			continue
		}
		for _, ai := range ix.Accounts {
			out = append(out, keys[ai])
		}
	}
	return out
}

// 构造批次层面核对发放总额：每个中奖者一条 2 单位转账，合计扣减 K×2。
func TestRun_TransferAmountsPerWinner(t *testing.T) {
	cfg := testConfig()
	fake := chaintest.NewFake()
	o := newTestOrchestrator(cfg, fake)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	var total uint64
	var count int
	for _, tx := range fake.SentTxs {
		for _, ix := range tx.Message.Instructions {
			if len(ix.Data) == 10 && ix.Data[0] == 12 { // TransferChecked: 判别码 + u64 金额 + 精度
				total += binary.LittleEndian.Uint64(ix.Data[1:9])
				count++
			}
		}
	}
	assert.Equal(t, len(result.Winners), count, "每个中奖者恰好一条转账指令")
	assert.Equal(t, uint64(len(result.Winners))*cfg.GiveawayConf.TransferAmount, total)
}
