package token

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"token-giveaway-sol/internal/chain"
	"token-giveaway-sol/internal/logic/assembler"
	"token-giveaway-sol/internal/logic/core"
	"token-giveaway-sol/pkg/logger"
)

// Issuer 是 SPL Token 发行侧的薄封装：建 mint、解析/创建收款账户、铸币、构造转账指令。
// 不含协议语义，所有提交均走 assembler 的统一路径。
type Issuer struct {
	client chain.Client
	asm    *assembler.Assembler
}

func NewIssuer(client chain.Client, asm *assembler.Assembler) *Issuer {
	return &Issuer{client: client, asm: asm}
}

// CreateMint 新建一个 mint 账户并初始化精度与铸币权限，返回 mint 地址。
// mint 账户本身必须对其创建联署。
func (i *Issuer) CreateMint(ctx context.Context, payer sdktypes.Account, decimals uint8) (common.PublicKey, error) {
	mint := sdktypes.NewAccount()

	rent, err := i.client.MinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return common.PublicKey{}, err
	}

	batch := core.NewBatch()
	batch.Add(system.CreateAccount(system.CreateAccountParam{
		From:     payer.PublicKey,
		New:      mint.PublicKey,
		Owner:    common.TokenProgramID,
		Lamports: rent,
		Space:    token.MintAccountSize,
	}))
	batch.Add(token.InitializeMint(token.InitializeMintParam{
		Decimals: decimals,
		Mint:     mint.PublicKey,
		MintAuth: payer.PublicKey,
	}))

	if _, err := i.asm.BuildAndSubmit(ctx, payer, batch, nil, mint); err != nil {
		return common.PublicKey{}, fmt.Errorf("create mint failed: %w", err)
	}
	logger.Infof("[Issuer] mint 创建完成: mint=%s decimals=%d", mint.PublicKey.ToBase58(), decimals)
	return mint.PublicKey, nil
}

// ReceivingAccount 表示一个中奖者的收款账户解析结果。
type ReceivingAccount struct {
	Address  common.PublicKey
	CreateIx *sdktypes.Instruction // 账户已存在时为 nil
}

// GetOrCreateReceivingAccount 解析 owner 在 mint 下的关联账户地址；
// 账户尚不存在时附带一条幂等创建指令，由调用方并入批次。
func (i *Issuer) GetOrCreateReceivingAccount(ctx context.Context, funder, owner, mint common.PublicKey) (ReceivingAccount, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return ReceivingAccount{}, fmt.Errorf("derive associated token address failed: owner=%s err=%w", owner.ToBase58(), err)
	}

	info, err := i.client.Account(ctx, ata)
	if err != nil {
		return ReceivingAccount{}, err
	}
	if len(info.Data) > 0 {
		return ReceivingAccount{Address: ata}, nil
	}

	ix := associated_token_account.CreateIdempotent(associated_token_account.CreateIdempotentParam{
		Funder:                 funder,
		Owner:                  owner,
		Mint:                   mint,
		AssociatedTokenAccount: ata,
	})
	return ReceivingAccount{Address: ata, CreateIx: &ix}, nil
}

// MintTo 向目标 token 账户铸造 amount 个最小单位并提交确认。
func (i *Issuer) MintTo(ctx context.Context, authority sdktypes.Account, mint, dest common.PublicKey, amount uint64) error {
	batch := core.NewBatch()
	batch.Add(token.MintTo(token.MintToParam{
		Mint:   mint,
		To:     dest,
		Auth:   authority.PublicKey,
		Amount: amount,
	}))
	if _, err := i.asm.BuildAndSubmit(ctx, authority, batch, nil); err != nil {
		return fmt.Errorf("mint to failed: dest=%s err=%w", dest.ToBase58(), err)
	}
	logger.Infof("[Issuer] 铸币完成: dest=%s amount=%d", dest.ToBase58(), amount)
	return nil
}

// TransferInstruction 构造一条带精度校验的转账指令（引用 mint，不提交）。
func (i *Issuer) TransferInstruction(source, dest, authority, mint common.PublicKey, amount uint64, decimals uint8) sdktypes.Instruction {
	return token.TransferChecked(token.TransferCheckedParam{
		From:     source,
		To:       dest,
		Mint:     mint,
		Auth:     authority,
		Amount:   amount,
		Decimals: decimals,
	})
}
