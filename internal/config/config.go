package config

import (
	"token-giveaway-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig 表示 Solana RPC 节点相关配置
type RpcConfig struct {
	Endpoint        string `yaml:"endpoint"`          // RPC 地址，例如 http://127.0.0.1:8899
	RequestTimeoutS int    `yaml:"request_timeout_s"` // 单次 RPC 调用超时（秒）
	ConfirmPollMs   int    `yaml:"confirm_poll_ms"`   // 交易确认轮询间隔（毫秒）
	AirdropTimeoutS int    `yaml:"airdrop_timeout_s"` // 等待空投到账的最长时间（秒）
	AirdropLamports uint64 `yaml:"airdrop_lamports"`  // 给发放方空投的 lamports 数量
}

// GiveawayConfig 表示一次发放活动的业务参数
type GiveawayConfig struct {
	CandidateCount int    `yaml:"candidate_count"` // 候选地址总数 N
	WinnerCount    int    `yaml:"winner_count"`    // 中奖人数 K（K <= N）
	TransferAmount uint64 `yaml:"transfer_amount"` // 每个中奖者获得的最小单位数量
	MintSupply     uint64 `yaml:"mint_supply"`     // 铸造给发放账户的总供应量（最小单位）
	Decimals       uint8  `yaml:"decimals"`        // 代币精度
	RandomSeed     int64  `yaml:"random_seed"`     // 抽奖随机种子，0 表示按当前时间取种
	ResolveWorkers int    `yaml:"resolve_workers"` // 中奖者收款账户解析的并发 worker 数
}

// WaitConfig 表示出块等待相关配置
type WaitConfig struct {
	BlockWaitN     uint64 `yaml:"block_wait_n"`     // 查表前需要等待超过的新区块数
	PollIntervalMs int    `yaml:"poll_interval_ms"` // 区块高度轮询间隔（毫秒）
	TimeoutS       int    `yaml:"timeout_s"`        // 等待出块的最长时间（秒），超时即报错
}

// LookupConfig 表示地址查找表相关配置
type LookupConfig struct {
	SlotLookback      uint64 `yaml:"slot_lookback"`        // 建表锚点 slot 的回看窗口
	MaxAddrsPerExtend int    `yaml:"max_addrs_per_extend"` // 单条 extend 指令最多携带的地址数
}

// Config 是主配置结构体，用于驱动发放流程
type Config struct {
	LogConf      LogConfig      `yaml:"logger"`   // 日志配置
	RpcConf      RpcConfig      `yaml:"rpc"`      // RPC 节点配置
	GiveawayConf GiveawayConfig `yaml:"giveaway"` // 发放活动配置
	WaitConf     WaitConfig     `yaml:"wait"`     // 出块等待配置
	LookupConf   LookupConfig   `yaml:"lookup"`   // 查找表配置
}

// Normalize 为未填写的字段补默认值，并校验业务参数的基本约束。
func (c *Config) Normalize() {
	if c.RpcConf.Endpoint == "" {
		c.RpcConf.Endpoint = "http://127.0.0.1:8899"
	}
	if c.RpcConf.RequestTimeoutS <= 0 {
		c.RpcConf.RequestTimeoutS = 10
	}
	if c.RpcConf.ConfirmPollMs <= 0 {
		c.RpcConf.ConfirmPollMs = 500
	}
	if c.RpcConf.AirdropTimeoutS <= 0 {
		c.RpcConf.AirdropTimeoutS = 30
	}
	if c.RpcConf.AirdropLamports == 0 {
		c.RpcConf.AirdropLamports = 2_000_000_000 // 2 SOL
	}
	if c.GiveawayConf.CandidateCount <= 0 {
		c.GiveawayConf.CandidateCount = 20
	}
	if c.GiveawayConf.WinnerCount <= 0 {
		c.GiveawayConf.WinnerCount = 10
	}
	if c.GiveawayConf.WinnerCount > c.GiveawayConf.CandidateCount {
		c.GiveawayConf.WinnerCount = c.GiveawayConf.CandidateCount
	}
	if c.GiveawayConf.TransferAmount == 0 {
		c.GiveawayConf.TransferAmount = 2
	}
	if c.GiveawayConf.MintSupply == 0 {
		c.GiveawayConf.MintSupply = 500
	}
	if c.GiveawayConf.ResolveWorkers <= 0 {
		c.GiveawayConf.ResolveWorkers = 4
	}
	if c.WaitConf.BlockWaitN == 0 {
		c.WaitConf.BlockWaitN = 2
	}
	if c.WaitConf.PollIntervalMs <= 0 {
		c.WaitConf.PollIntervalMs = 1000
	}
	if c.WaitConf.TimeoutS <= 0 {
		c.WaitConf.TimeoutS = 60
	}
	if c.LookupConf.SlotLookback == 0 {
		c.LookupConf.SlotLookback = 20
	}
	if c.LookupConf.MaxAddrsPerExtend <= 0 {
		c.LookupConf.MaxAddrsPerExtend = 20
	}
}
