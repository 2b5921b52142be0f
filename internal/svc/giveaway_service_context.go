package svc

import (
	"time"

	"token-giveaway-sol/internal/chain"
	"token-giveaway-sol/internal/config"
	"token-giveaway-sol/internal/logic/assembler"
	"token-giveaway-sol/internal/logic/giveaway"
	"token-giveaway-sol/internal/logic/lookup"
	"token-giveaway-sol/internal/logic/waiter"
	"token-giveaway-sol/internal/token"
	"token-giveaway-sol/pkg/logger"
)

// GiveawayServiceContext 持有发放流程的全部资源与组件装配。
type GiveawayServiceContext struct {
	Config       *config.Config
	Client       chain.Client
	Orchestrator *giveaway.Orchestrator
}

// NewGiveawayServiceContext 按配置装配 RPC 客户端与各核心组件。
func NewGiveawayServiceContext(c config.Config) *GiveawayServiceContext {
	c.Normalize()

	client := chain.NewRpcClient(c.RpcConf.Endpoint, time.Duration(c.RpcConf.RequestTimeoutS)*time.Second)
	asm := assembler.New(client, time.Duration(c.RpcConf.ConfirmPollMs)*time.Millisecond)
	lk := lookup.New(client, asm, c.LookupConf.SlotLookback, c.LookupConf.MaxAddrsPerExtend)
	w := waiter.New(client,
		time.Duration(c.WaitConf.PollIntervalMs)*time.Millisecond,
		time.Duration(c.WaitConf.TimeoutS)*time.Second)
	issuer := token.NewIssuer(client, asm)

	ctx := &GiveawayServiceContext{
		Config:       &c,
		Client:       client,
		Orchestrator: giveaway.New(&c, client, asm, lk, w, issuer),
	}

	logger.Infof("服务上下文初始化完成: endpoint=%s", c.RpcConf.Endpoint)
	return ctx
}
