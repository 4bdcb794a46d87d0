package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/domain"
	"wardrobe/internal/infra"
	"wardrobe/internal/providers/analyze"
	"wardrobe/internal/queue"
	"wardrobe/internal/search"
	"wardrobe/internal/state"
	"wardrobe/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	queueClient, err := queue.NewClient(cfg.AMQPUrl, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect queue")
	}
	defer queueClient.Close()

	analyzer, err := analyze.NewClient(analyze.Options{
		BaseURL:        cfg.AIBaseURL,
		ConnectTimeout: cfg.AIConnectTimeout,
		ReadTimeout:    cfg.AIReadTimeout,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure analyzer")
	}

	var indexer *search.Indexer
	if cfg.MeiliHost != "" {
		indexer, err = search.NewIndexer(cfg.MeiliHost, cfg.MeiliMasterKey, cfg.MeiliIndex, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect search")
		}
	} else {
		logger.Warn().Msg("search not configured, index tasks will be dropped")
	}

	store := repo.NewStore(dbpool)
	orchStore := repo.NewOrchestratorStore(dbpool)
	orch := worker.NewOrchestrator(worker.Options{
		Begin: func(ctx context.Context) (worker.Tx, error) {
			return orchStore.Begin(ctx)
		},
		Analyzer: analyzer,
		States:   state.NewService(),
		Logger:   logger,
	})

	reaper := worker.NewReaper(
		infra.NewSQLRunner(dbpool, logger),
		queueClient,
		logger,
		cfg.JobReapAfter,
		cfg.JobReapInterval,
	)
	go reaper.Start(ctx)

	handler := func(ctx context.Context, task queue.Task) error {
		switch task.Kind {
		case queue.KindProcessAIJob:
			return orch.Run(ctx, task.ID)
		case queue.KindIndexProduct:
			return indexProduct(ctx, store, indexer, task.ID)
		default:
			logger.Warn().Str("kind", task.Kind).Msg("unknown task kind, dropping")
			return nil
		}
	}

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")
	if err := queueClient.Consume(ctx, cfg.WorkerConcurrency, handler); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("consume failed")
	}
	logger.Info().Msg("worker stopped")
}

// indexProduct refreshes one catalog document. A product deleted between
// dispatch and delivery is removed from the index instead.
func indexProduct(ctx context.Context, store *repo.Store, indexer *search.Indexer, productID string) error {
	if indexer == nil {
		return nil
	}
	product, err := store.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return indexer.DeleteProduct(ctx, productID)
		}
		return fmt.Errorf("load product %s: %w", productID, err)
	}
	return indexer.IndexProduct(ctx, search.DocumentFromProduct(product))
}
