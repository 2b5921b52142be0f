package giveaway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"token-giveaway-sol/internal/chain"
	"token-giveaway-sol/internal/config"
	"token-giveaway-sol/internal/logic/assembler"
	"token-giveaway-sol/internal/logic/core"
	"token-giveaway-sol/internal/logic/lookup"
	"token-giveaway-sol/internal/logic/waiter"
	"token-giveaway-sol/internal/token"
	"token-giveaway-sol/internal/types"
	"token-giveaway-sol/pkg/logger"
	"token-giveaway-sol/pkg/utils"
)

// Result 汇总一次发放流程的产出，供入口打印与测试断言。
type Result struct {
	Mint           common.PublicKey
	Table          common.PublicKey
	TableResolved  bool
	Winners        []types.Pubkey
	SourceAccount  common.PublicKey
	SourceBalance  uint64
	WinnerBalances []uint64
	CompressedSize int
	DirectSize     int
}

// Orchestrator 驱动完整的发放对比流程：
// 空投注资 -> 建 mint 与发放账户 -> 铸造供应量 -> 抽取中奖者 -> 并发解析收款账户 ->
// 构造转账批次 -> 建查找表 -> 等待出块 -> 压缩提交 + 直接编码对比体积。
type Orchestrator struct {
	cfg    *config.Config
	client chain.Client
	asm    *assembler.Assembler
	lookup *lookup.Manager
	waiter *waiter.Waiter
	issuer *token.Issuer
	rng    *rand.Rand

	newAccount func() sdktypes.Account // 身份生成钩子，测试可注入确定性密钥
}

func New(
	cfg *config.Config,
	client chain.Client,
	asm *assembler.Assembler,
	lk *lookup.Manager,
	w *waiter.Waiter,
	issuer *token.Issuer,
) *Orchestrator {
	seed := cfg.GiveawayConf.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		asm:        asm,
		lookup:     lk,
		waiter:     w,
		issuer:     issuer,
		rng:        rand.New(rand.NewSource(seed)),
		newAccount: sdktypes.NewAccount,
	}
}

// Run 执行一次完整发放。查找表建表后无法解析时记录日志并提前返回（正常退出）。
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	gc := o.cfg.GiveawayConf
	result := &Result{}

	// 1. 发放方身份与注资
	distributor := o.newAccount()
	if err := o.fundDistributor(ctx, distributor.PublicKey); err != nil {
		return nil, err
	}

	// 2. 建 mint、发放账户并铸造供应量
	mint, err := o.issuer.CreateMint(ctx, distributor, gc.Decimals)
	if err != nil {
		return nil, err
	}
	result.Mint = mint

	source, err := o.issuer.GetOrCreateReceivingAccount(ctx, distributor.PublicKey, distributor.PublicKey, mint)
	if err != nil {
		return nil, err
	}
	if source.CreateIx != nil {
		batch := core.NewBatch()
		batch.Add(*source.CreateIx)
		if _, err := o.asm.BuildAndSubmit(ctx, distributor, batch, nil); err != nil {
			return nil, fmt.Errorf("create source account failed: %w", err)
		}
	}
	result.SourceAccount = source.Address

	if err := o.issuer.MintTo(ctx, distributor, mint, source.Address, gc.MintSupply); err != nil {
		return nil, err
	}

	// 3. 生成候选并抽取中奖者（顺序即后续指令顺序）
	candidates := make([]types.Pubkey, 0, gc.CandidateCount)
	for i := 0; i < gc.CandidateCount; i++ {
		candidates = append(candidates, types.PubkeyFromSDK(o.newAccount().PublicKey))
	}
	winners := SelectWinners(o.rng, candidates, gc.WinnerCount)
	result.Winners = winners
	logger.Infof("[Giveaway] 已抽取中奖者: %d/%d", len(winners), len(candidates))

	// 4. 并发解析收款账户，ParallelMap 保证结果顺序与中奖顺序一致
	resolvedList := utils.ParallelMap(winners, gc.ResolveWorkers, func(w types.Pubkey) resolvedAccount {
		acct, err := o.issuer.GetOrCreateReceivingAccount(ctx, distributor.PublicKey, w.ToSDK(), mint)
		return resolvedAccount{acct: acct, err: err}
	})
	for i, r := range resolvedList {
		if r.err != nil {
			return nil, fmt.Errorf("resolve receiving account failed: winner=%s err=%w", winners[i], r.err)
		}
	}

	// 5. 构造转账批次，地址集合随指令自动累积
	transferBatch := core.NewBatch()
	for _, r := range resolvedList {
		if r.acct.CreateIx != nil {
			transferBatch.Add(*r.acct.CreateIx)
		}
		transferBatch.Add(o.issuer.TransferInstruction(
			source.Address, r.acct.Address, distributor.PublicKey, mint, gc.TransferAmount, gc.Decimals))
	}

	// 6. 建查找表并等待其对读路径可见
	tableAddr, err := o.lookup.CreateAndExtend(ctx, distributor, transferBatch.Addresses())
	if err != nil {
		return nil, err
	}
	result.Table = tableAddr

	if _, err := o.waiter.WaitForBlocks(ctx, o.cfg.WaitConf.BlockWaitN); err != nil {
		return nil, err
	}

	tableAcct, err := o.lookup.Resolve(ctx, tableAddr)
	if err != nil {
		if errors.Is(err, lookup.ErrTableNotResolved) {
			logger.Errorf("[Giveaway] 查找表创建后仍无法解析，放弃本次对比: %v", err)
			return result, nil
		}
		return nil, err
	}
	result.TableResolved = true

	// 7. 压缩版本真实提交；直接编码版本只构建签名用于体积对比，
	//    避免同一批转账被执行两次
	compressedRaw, err := o.asm.BuildAndSubmit(ctx, distributor, transferBatch, &tableAcct)
	if err != nil {
		return nil, err
	}
	_, directRaw, err := o.asm.Build(ctx, distributor, transferBatch, nil)
	if err != nil {
		return nil, err
	}
	result.CompressedSize = len(compressedRaw)
	result.DirectSize = len(directRaw)
	logger.Infof("[Giveaway] 交易体积对比: compressed=%dB direct=%dB saved=%dB",
		result.CompressedSize, result.DirectSize, result.DirectSize-result.CompressedSize)

	// 8. 余额核对
	if err := o.reportBalances(ctx, result, resolvedList); err != nil {
		return nil, err
	}
	return result, nil
}

// resolvedAccount 是单个中奖者收款账户的解析结果。
type resolvedAccount struct {
	acct token.ReceivingAccount
	err  error
}

// fundDistributor 空投注资并轮询余额直至到账。
func (o *Orchestrator) fundDistributor(ctx context.Context, addr common.PublicKey) error {
	lamports := o.cfg.RpcConf.AirdropLamports
	sig, err := o.client.RequestAirdrop(ctx, addr, lamports)
	if err != nil {
		return err
	}
	logger.Infof("[Giveaway] 已请求空投: addr=%s lamports=%d sig=%s", addr.ToBase58(), lamports, sig)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.RpcConf.AirdropTimeoutS)*time.Second)
	defer cancel()
	ticker := time.NewTicker(time.Duration(o.cfg.RpcConf.ConfirmPollMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		balance, err := o.client.Balance(ctx, addr)
		if err != nil {
			return err
		}
		if balance >= lamports {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("airdrop not credited in time: addr=%s err=%w", addr.ToBase58(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// reportBalances 回读发放账户与各中奖者账户的余额并核对发放总额。
func (o *Orchestrator) reportBalances(ctx context.Context, result *Result, resolvedList []resolvedAccount) error {
	gc := o.cfg.GiveawayConf

	sourceBalance, err := o.client.TokenBalance(ctx, result.SourceAccount)
	if err != nil {
		return err
	}
	result.SourceBalance = sourceBalance

	result.WinnerBalances = make([]uint64, 0, len(resolvedList))
	for i, r := range resolvedList {
		balance, err := o.client.TokenBalance(ctx, r.acct.Address)
		if err != nil {
			return err
		}
		result.WinnerBalances = append(result.WinnerBalances, balance)
		if balance != gc.TransferAmount {
			logger.Warnf("[Giveaway] 中奖者余额异常: winner=%s got=%d want=%d", result.Winners[i], balance, gc.TransferAmount)
		}
	}

	expected := gc.MintSupply - uint64(len(resolvedList))*gc.TransferAmount
	if sourceBalance != expected {
		logger.Warnf("[Giveaway] 发放账户余额异常: got=%d want=%d", sourceBalance, expected)
	} else {
		logger.Infof("[Giveaway] 余额核对通过: source=%d winners=%d×%d", sourceBalance, len(resolvedList), gc.TransferAmount)
	}
	return nil
}
