package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tron-wallet-core/internal/handler"
	"tron-wallet-core/pkg/monitor"
	"tron-wallet-core/pkg/validator"
)

// Handlers 路由依赖
type Handlers struct {
	Account  *handler.AccountHandler
	Transfer *handler.TransferHandler
	Network  *handler.NetworkHandler
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	// 0. 初始化监控指标与自定义校验规则
	monitor.Init()
	validator.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		accounts := api.Group("/accounts/:address")
		accounts.GET("/balance", h.Account.Balance)
		accounts.GET("/risk", h.Account.Risk)

		transfers := api.Group("/transfers")
		transfers.POST("/build", h.Transfer.Build)
		transfers.POST("/broadcast", h.Transfer.Broadcast)

		api.GET("/transactions/:txid", h.Transfer.Transaction)
		api.GET("/network", h.Network.Status)
	}

	return r
}
