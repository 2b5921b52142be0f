package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// RpcClient 基于 Solana JSON-RPC 实现 Client 接口，每次调用带独立超时。
type RpcClient struct {
	c       *client.Client
	rpc     rpc.RpcClient
	timeout time.Duration
}

func NewRpcClient(endpoint string, requestTimeout time.Duration) *RpcClient {
	return &RpcClient{
		c:       client.NewClient(endpoint),
		rpc:     rpc.NewRpcClient(endpoint),
		timeout: requestTimeout,
	}
}

func (r *RpcClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *RpcClient) LatestBlockhash(ctx context.Context) (BlockRef, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	v, err := r.c.GetLatestBlockhash(ctx)
	if err != nil {
		return BlockRef{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	return BlockRef{
		Blockhash:            v.Blockhash,
		LastValidBlockHeight: v.LatestValidBlockHeight,
	}, nil
}

func (r *RpcClient) BlockHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.rpc.GetBlockHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("getBlockHeight failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getBlockHeight rpc error: %w", resp.Error)
	}
	return resp.Result, nil
}

func (r *RpcClient) Slot(ctx context.Context) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	s, err := r.c.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("getSlot failed: %w", err)
	}
	return s, nil
}

func (r *RpcClient) Blocks(ctx context.Context, start, end uint64) ([]uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.rpc.GetBlocks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("getBlocks failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getBlocks rpc error: %w", resp.Error)
	}
	return resp.Result, nil
}

func (r *RpcClient) Balance(ctx context.Context, addr common.PublicKey) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := r.c.GetBalance(ctx, addr.ToBase58())
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: addr=%s err=%w", addr.ToBase58(), err)
	}
	return b, nil
}

func (r *RpcClient) TokenBalance(ctx context.Context, addr common.PublicKey) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	amount, err := r.c.GetTokenAccountBalance(ctx, addr.ToBase58())
	if err != nil {
		return 0, fmt.Errorf("getTokenAccountBalance failed: addr=%s err=%w", addr.ToBase58(), err)
	}
	return amount.Amount, nil
}

func (r *RpcClient) MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	lamports, err := r.c.GetMinimumBalanceForRentExemption(ctx, dataLen)
	if err != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption failed: %w", err)
	}
	return lamports, nil
}

func (r *RpcClient) RequestAirdrop(ctx context.Context, addr common.PublicKey, lamports uint64) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sig, err := r.c.RequestAirdrop(ctx, addr.ToBase58(), lamports)
	if err != nil {
		return "", fmt.Errorf("requestAirdrop failed: addr=%s err=%w", addr.ToBase58(), err)
	}
	return sig, nil
}

func (r *RpcClient) SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sig, err := r.c.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("sendTransaction failed: %w", err)
	}
	return sig, nil
}

func (r *RpcClient) SignatureFinalized(ctx context.Context, sig string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	status, err := r.c.GetSignatureStatus(ctx, sig)
	if err != nil {
		return false, fmt.Errorf("getSignatureStatus failed: sig=%s err=%w", sig, err)
	}
	if status == nil || status.ConfirmationStatus == nil {
		return false, nil
	}
	return *status.ConfirmationStatus == rpc.CommitmentFinalized, nil
}

func (r *RpcClient) Account(ctx context.Context, addr common.PublicKey) (AccountInfo, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	info, err := r.c.GetAccountInfo(ctx, addr.ToBase58())
	if err != nil {
		return AccountInfo{}, fmt.Errorf("getAccountInfo failed: addr=%s err=%w", addr.ToBase58(), err)
	}
	return AccountInfo{Owner: info.Owner, Data: info.Data}, nil
}
