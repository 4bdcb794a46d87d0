package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/http/handlers"
	"wardrobe/internal/http/httpapi"
	"wardrobe/internal/infra"
	"wardrobe/internal/middleware"
	"wardrobe/internal/queue"
	"wardrobe/internal/search"
	"wardrobe/internal/state"
	"wardrobe/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	var blobs storage.BlobStore
	if cfg.MinioEndpoint != "" {
		blobs, err = storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Secure:    cfg.MinioSecure,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect object storage")
		}
	} else {
		blobs, err = storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare file storage")
		}
		logger.Warn().Str("path", cfg.StoragePath).Msg("object storage not configured, using local files")
	}

	queueClient, err := queue.NewClient(cfg.AMQPUrl, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect queue")
	}
	defer queueClient.Close()

	var indexer *search.Indexer
	if cfg.MeiliHost != "" {
		indexer, err = search.NewIndexer(cfg.MeiliHost, cfg.MeiliMasterKey, cfg.MeiliIndex, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect search")
		}
	} else {
		logger.Warn().Msg("search not configured, catalog queries disabled")
	}

	var limiter middleware.Counter = middleware.NewMemoryCounter()
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid redis url")
		}
		limiter = &middleware.RedisCounter{Client: redis.NewClient(redisOpts), Prefix: "ratelimit:"}
	}

	app := &handlers.App{
		Config: cfg,
		Logger: logger,
		Store:  repo.NewStore(dbpool),
		Blobs:  blobs,
		Queue:  queueClient,
		Search: indexer,
		States: state.NewService(),
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, limiter))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
