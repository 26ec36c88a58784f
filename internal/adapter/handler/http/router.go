package http

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// RegisterRoutes sets up the RPC management routes and the health check.
func RegisterRoutes(r *router.Router, h *RPCHandler, logger *zap.Logger) {
	r.GET("/rpcs", h.List)
	r.PUT("/chains/{chainId:[0-9]+}/rpc", h.SetPrimary)
	r.DELETE("/chains/{chainId:[0-9]+}/rpc", h.Delete)
	r.POST("/chains/{chainId:[0-9]+}/rpc/backups", h.AddBackup)
	r.POST("/chains/{chainId:[0-9]+}/rpc/rotate", h.Rotate)
	r.GET("/chains/{chainId:[0-9]+}/rpc/health", h.Report)
	r.GET("/chains/{chainId:[0-9]+}/rpc/candidates", h.Candidates)

	r.GET("/chains/{chainId:[0-9]+}/balance/{address}", h.NativeBalance)
	r.GET("/chains/{chainId:[0-9]+}/tokens/{token}", h.TokenInfo)
	r.GET("/chains/{chainId:[0-9]+}/tokens/{token}/balance/{holder}", h.TokenBalance)
	r.GET("/chains/{chainId:[0-9]+}/contracts/{address}/source", h.ContractSource)

	r.GET("/keys", h.ListAPIKeys)
	r.PUT("/keys/{service}", h.SetAPIKey)
	r.DELETE("/keys/{service}", h.DeleteAPIKey)

	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})

	logger.Info("All routes registered.")
}
