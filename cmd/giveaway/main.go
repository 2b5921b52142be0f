package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"token-giveaway-sol/internal/config"
	"token-giveaway-sol/internal/svc"
	"token-giveaway-sol/pkg/logger"
)

var configFile = flag.String("f", "etc/giveaway.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	logger.Init(c.LogConf.ToLogOption())
	defer logger.Sync()

	serviceContext := svc.NewGiveawayServiceContext(c)

	// 收到退出信号时取消整个流程
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("开始执行发放流程")
	result, err := serviceContext.Orchestrator.Run(ctx)
	if err != nil {
		logger.Errorf("发放流程失败: %v", err)
		os.Exit(1)
	}

	if !result.TableResolved {
		logger.Warnf("查找表未能解析，跳过压缩对比后结束")
		return
	}
	logger.Infof("发放完成: winners=%d compressed=%dB direct=%dB",
		len(result.Winners), result.CompressedSize, result.DirectSize)
}
