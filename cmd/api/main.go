package main

import (
	"context"
	"log"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/XVM-Systems/RAIL/internal/adapter/explorer"
	handler "github.com/XVM-Systems/RAIL/internal/adapter/handler/http"
	"github.com/XVM-Systems/RAIL/internal/adapter/registry"
	"github.com/XVM-Systems/RAIL/internal/adapter/rpc"
	"github.com/XVM-Systems/RAIL/internal/adapter/storage/file"
	"github.com/XVM-Systems/RAIL/internal/application"
	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/logger"
)

func main() {
	// --- Configuration ---
	cfgPath := "configs"
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	// --- Logger ---
	zapLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer zapLogger.Sync() // Ensure logs are flushed before exiting
	zapLogger.Info("Logger initialized", zap.Any("config", cfg.Logger))

	// --- Dependency Injection (Manual) ---
	zapLogger.Info("Initializing dependencies...")

	store, err := file.NewStore(cfg.Storage, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open config store", zap.Error(err))
	}

	registrySource := registry.NewRepository(cfg.Registry, zapLogger)
	sourceExplorer := explorer.NewClient(cfg.Explorer, zapLogger)
	prober := rpc.NewProber(zapLogger)
	reader := rpc.NewClient(zapLogger)

	service, err := application.NewService(
		context.Background(),
		store,
		registrySource,
		sourceExplorer,
		prober,
		reader,
		zapLogger,
		*cfg,
	)
	if err != nil {
		zapLogger.Fatal("Failed to initialize RPC service", zap.Error(err))
	}

	rpcHandler := handler.NewRPCHandler(service, zapLogger)

	// --- HTTP Router & Server ---
	zapLogger.Info("Setting up HTTP router...")
	r := router.New()
	handler.RegisterRoutes(r, rpcHandler, zapLogger)

	loggingMiddleware := func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			zapLogger.Info("Request received",
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("uri", ctx.RequestURI()))
			next(ctx)
		}
	}

	serverAddr := ":" + cfg.Server.Port
	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr))

	if err := fasthttp.ListenAndServe(serverAddr, loggingMiddleware(r.Handler)); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
