package main

import (
	"context"

	"go.uber.org/zap"

	"tron-wallet-core/internal/app"
	"tron-wallet-core/internal/handler"
	"tron-wallet-core/internal/server"
	"tron-wallet-core/pkg/config"
	"tron-wallet-core/pkg/logger"
)

func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 组装客户端与服务
	c, err := app.Build(context.Background(), &config.Global)
	if err != nil {
		logger.Fatal("组件初始化失败", zap.Error(err))
	}
	defer c.Close()

	// 3. HTTP Router
	r := server.NewHTTPRouter(server.Handlers{
		Account: &handler.AccountHandler{
			Balances:  c.RPC,
			Tokens:    c.Tokens,
			Fee:       c.Fee,
			Evaluator: c.Evaluator,
		},
		Transfer: &handler.TransferHandler{
			Transfers:   c.Transfers,
			Broadcaster: c.Broadcaster,
		},
		Network: &handler.NetworkHandler{
			Network: config.Global.Tron.Network,
			Chain:   c.RPC,
		},
	})

	// 4. 运行 (阻塞)
	server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r).Run()
	logger.Info("系统已退出")
}
