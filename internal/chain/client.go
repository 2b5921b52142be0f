package chain

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// BlockRef 表示一次新鲜的区块引用：blockhash 以及该 hash 的最后有效区块高度。
// 交易必须在 LastValidBlockHeight 之前被最终确认，否则视为过期丢弃。
type BlockRef struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// AccountInfo 是账户查询结果：所有者程序与原始数据。
// 账户不存在时 Data 为 nil。
type AccountInfo struct {
	Owner common.PublicKey
	Data  []byte
}

// Client 是本系统消费的 RPC 窄接口。实现见 RpcClient；测试使用 chaintest.Fake。
type Client interface {
	// LatestBlockhash 获取最新 blockhash 及其有效期高度。
	LatestBlockhash(ctx context.Context) (BlockRef, error)
	// BlockHeight 获取当前区块高度。
	BlockHeight(ctx context.Context) (uint64, error)
	// Slot 获取当前 slot。
	Slot(ctx context.Context) (uint64, error)
	// Blocks 获取 [start, end] 范围内已确认的 slot 列表，升序。
	Blocks(ctx context.Context, start, end uint64) ([]uint64, error)
	// Balance 查询账户的 lamports 余额。
	Balance(ctx context.Context, addr common.PublicKey) (uint64, error)
	// TokenBalance 查询 token 账户的最小单位余额。
	TokenBalance(ctx context.Context, addr common.PublicKey) (uint64, error)
	// MinimumBalanceForRentExemption 查询指定数据长度账户的免租金额。
	MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	// RequestAirdrop 请求空投，返回交易签名。
	RequestAirdrop(ctx context.Context, addr common.PublicKey, lamports uint64) (string, error)
	// SendTransaction 提交已签名交易，返回交易签名。不做任何重试。
	SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error)
	// SignatureFinalized 查询签名是否已达 finalized 承诺级别。
	SignatureFinalized(ctx context.Context, sig string) (bool, error)
	// Account 获取账户所有者与原始数据；账户不存在时返回零值且无错误。
	Account(ctx context.Context, addr common.PublicKey) (AccountInfo, error)
}
