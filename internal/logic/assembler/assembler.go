package assembler

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdktypes "github.com/blocto/solana-go-sdk/types"

	"token-giveaway-sol/internal/chain"
	"token-giveaway-sol/internal/logic/core"
	"token-giveaway-sol/pkg/logger"
)

// ErrTransactionDropped 表示交易在其 blockhash 有效期内未达最终确认，已被网络丢弃。
// 不做自动换 blockhash 重发，由调用方决定是否整体失败。
var ErrTransactionDropped = errors.New("transaction dropped: blockhash expired before finalization")

// Assembler 负责把指令批次组装为已签名交易：
// 取新鲜 blockhash -> 组装消息（可选查找表压缩）-> 签名 -> 提交 -> 按高度窗口轮询确认。
// 带查找表时产出 v0 版本化交易，否则为 legacy 直接编码。
type Assembler struct {
	client      chain.Client
	confirmPoll time.Duration
}

func New(client chain.Client, confirmPoll time.Duration) *Assembler {
	return &Assembler{
		client:      client,
		confirmPoll: confirmPoll,
	}
}

// Build 构建并签名一笔交易但不提交，返回交易对象与序列化字节。
// table 为 nil 时地址全部直接编码；否则命中表内地址改写为索引引用。
func (a *Assembler) Build(
	ctx context.Context,
	payer sdktypes.Account,
	batch *core.Batch,
	table *sdktypes.AddressLookupTableAccount,
	extraSigners ...sdktypes.Account,
) (sdktypes.Transaction, []byte, error) {
	tx, raw, _, err := a.buildSigned(ctx, payer, batch, table, extraSigners)
	return tx, raw, err
}

// BuildAndSubmit 构建、签名、提交一笔交易，并等待最终确认。
// 返回已签名交易的序列化字节（仅供体积比较，不用于重发）。
func (a *Assembler) BuildAndSubmit(
	ctx context.Context,
	payer sdktypes.Account,
	batch *core.Batch,
	table *sdktypes.AddressLookupTableAccount,
	extraSigners ...sdktypes.Account,
) ([]byte, error) {
	tx, raw, ref, err := a.buildSigned(ctx, payer, batch, table, extraSigners)
	if err != nil {
		return nil, err
	}

	// 提交失败直接向上传播，不重试
	sig, err := a.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Assembler] 交易已提交: sig=%s size=%d compressed=%v", sig, len(raw), table != nil)

	if err := a.awaitFinalized(ctx, sig, ref.LastValidBlockHeight); err != nil {
		return nil, err
	}
	logger.Infof("[Assembler] 交易已最终确认: sig=%s", sig)
	return raw, nil
}

func (a *Assembler) buildSigned(
	ctx context.Context,
	payer sdktypes.Account,
	batch *core.Batch,
	table *sdktypes.AddressLookupTableAccount,
	extraSigners []sdktypes.Account,
) (sdktypes.Transaction, []byte, chain.BlockRef, error) {
	// blockhash 必须在组装前即时获取，陈旧引用会以 "expired blockhash" 告终
	ref, err := a.client.LatestBlockhash(ctx)
	if err != nil {
		return sdktypes.Transaction{}, nil, chain.BlockRef{}, err
	}

	var tables []sdktypes.AddressLookupTableAccount
	if table != nil {
		tables = append(tables, *table)
	}

	// 消息版本由 SDK 推断：带查找表编译为 v0，否则为 legacy（地址直接内嵌）
	msg := sdktypes.NewMessage(sdktypes.NewMessageParam{
		FeePayer:                   payer.PublicKey,
		RecentBlockhash:            ref.Blockhash,
		Instructions:               batch.Instructions(),
		AddressLookupTableAccounts: tables,
	})

	signers := append([]sdktypes.Account{payer}, extraSigners...)
	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: msg,
		Signers: signers,
	})
	if err != nil {
		return sdktypes.Transaction{}, nil, chain.BlockRef{}, fmt.Errorf("build transaction failed: %w", err)
	}

	raw, err := tx.Serialize()
	if err != nil {
		return sdktypes.Transaction{}, nil, chain.BlockRef{}, fmt.Errorf("serialize transaction failed: %w", err)
	}
	return tx, raw, ref, nil
}

// awaitFinalized 以固定间隔轮询签名状态，直到 finalized 或高度越过有效期窗口。
func (a *Assembler) awaitFinalized(ctx context.Context, sig string, lastValidHeight uint64) error {
	ticker := time.NewTicker(a.confirmPoll)
	defer ticker.Stop()

	for {
		finalized, err := a.client.SignatureFinalized(ctx, sig)
		if err != nil {
			return err
		}
		if finalized {
			return nil
		}

		height, err := a.client.BlockHeight(ctx)
		if err != nil {
			return err
		}
		if height > lastValidHeight {
			return fmt.Errorf("%w: sig=%s height=%d lastValid=%d", ErrTransactionDropped, sig, height, lastValidHeight)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
