package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auctionhousego/internal/config"
	"auctionhousego/internal/http/http_server"
	"auctionhousego/internal/redis/redis_client"
	auctionsvc "auctionhousego/internal/services/auction"
	"auctionhousego/internal/store"
	"auctionhousego/internal/sweeper"
	"auctionhousego/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client
	var auctionService auctionsvc.IAuctionService

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (live-feed pub/sub)
	redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres
	pgDb, err := store.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	auctionStore := store.New(pgDb)
	if err := auctionStore.EnsureSchema(ctx); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}

	// 5. Services
	auctionService = auctionsvc.NewAuctionService(auctionStore, redisClient, cfg.BidMaxRetries)

	// 6. Background: lifecycle sweeper (startup catch-up + periodic)
	sweeper.New(auctionStore, redisClient, cfg.SweepInterval()).Run(ctx)

	// 7. WebSockets hub + Redis fan-out
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient, auctionService)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, auctionService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
