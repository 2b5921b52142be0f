package lookup

import (
	"context"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-giveaway-sol/internal/chain/chaintest"
	"token-giveaway-sol/internal/logic/assembler"
	"token-giveaway-sol/internal/types"
)

func newManager(fake *chaintest.Fake, maxPerExtend int) *Manager {
	asm := assembler.New(fake, time.Millisecond)
	return New(fake, asm, 20, maxPerExtend)
}

func randomAddrs(n int) []types.Pubkey {
	addrs := make([]types.Pubkey, 0, n)
	for i := 0; i < n; i++ {
		addrs = append(addrs, types.PubkeyFromSDK(sdktypes.NewAccount().PublicKey))
	}
	return addrs
}

func TestCreateAndExtend_ResolveRoundTrip(t *testing.T) {
	fake := chaintest.NewFake()
	mgr := newManager(fake, 3) // 小分片，验证多条 extend 指令
	authority := sdktypes.NewAccount()
	addrs := randomAddrs(7)

	tableAddr, err := mgr.CreateAndExtend(context.Background(), authority, addrs)
	require.NoError(t, err)

	acct, err := mgr.Resolve(context.Background(), tableAddr)
	require.NoError(t, err)
	assert.Equal(t, tableAddr, acct.Key)

	// 索引映射按首次写入顺序
	require.Len(t, acct.Addresses, len(addrs))
	for i, a := range addrs {
		assert.Equal(t, a.ToSDK(), acct.Addresses[i], "索引 %d 的地址不匹配", i)
	}
}

func TestCreateAndExtend_TwiceKeepsFirstInsertionIndexes(t *testing.T) {
	fake := chaintest.NewFake()
	mgr := newManager(fake, 10)
	authority := sdktypes.NewAccount()
	addrs := randomAddrs(4)

	tableAddr1, err := mgr.CreateAndExtend(context.Background(), authority, addrs)
	require.NoError(t, err)
	tableAddr2, err := mgr.CreateAndExtend(context.Background(), authority, addrs)
	require.NoError(t, err)

	// (authority, anchor slot) 不变，派生地址必然一致
	assert.Equal(t, tableAddr1, tableAddr2)

	acct, err := mgr.Resolve(context.Background(), tableAddr1)
	require.NoError(t, err)
	// 重复扩展后，首次写入的索引映射保持不变
	require.GreaterOrEqual(t, len(acct.Addresses), len(addrs))
	for i, a := range addrs {
		assert.Equal(t, a.ToSDK(), acct.Addresses[i])
	}
}

func TestCreateAndExtend_EmptyHistoryIsFatal(t *testing.T) {
	fake := chaintest.NewFake()
	fake.EmptyBlocks = true
	mgr := newManager(fake, 10)

	_, err := mgr.CreateAndExtend(context.Background(), sdktypes.NewAccount(), randomAddrs(3))
	assert.ErrorIs(t, err, ErrNoRecentSlot)
}

func TestResolve_MissingAccount(t *testing.T) {
	fake := chaintest.NewFake()
	mgr := newManager(fake, 10)

	_, err := mgr.Resolve(context.Background(), sdktypes.NewAccount().PublicKey)
	assert.ErrorIs(t, err, ErrTableNotResolved)
}

func TestResolve_WrongOwnerRejected(t *testing.T) {
	fake := chaintest.NewFake()
	mgr := newManager(fake, 10)

	// 同地址上放置一个非查找表程序所有的账户，解析必须拒绝
	addr := sdktypes.NewAccount().PublicKey
	fake.SetAccount(addr, common.SystemProgramID, []byte{1, 2, 3})

	_, err := mgr.Resolve(context.Background(), addr)
	assert.ErrorIs(t, err, ErrTableNotResolved)
}

func TestResolve_ReturnsTableKeyAndAddresses(t *testing.T) {
	fake := chaintest.NewFake()
	mgr := newManager(fake, 10)

	table := sdktypes.NewAccount().PublicKey
	content := randomAddrs(3)
	fake.SetTable(table, types.PubkeysToSDK(content))

	acct, err := mgr.Resolve(context.Background(), table)
	require.NoError(t, err)
	// Key 是表账户地址本身，而非表内首地址
	assert.Equal(t, table, acct.Key)
	require.Len(t, acct.Addresses, len(content))
	for i, a := range content {
		assert.Equal(t, a.ToSDK(), acct.Addresses[i])
	}
}
