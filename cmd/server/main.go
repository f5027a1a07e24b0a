package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smarties/backend/config"
	httpDelivery "github.com/smarties/backend/internal/delivery/http"
	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/guideline"
	"github.com/smarties/backend/internal/infrastructure/cache"
	"github.com/smarties/backend/internal/infrastructure/llm"
	"github.com/smarties/backend/internal/infrastructure/openfoodfacts"
	"github.com/smarties/backend/internal/infrastructure/pgvector"
	"github.com/smarties/backend/internal/infrastructure/vectorindex"
	"github.com/smarties/backend/internal/platform/logger"
	"github.com/smarties/backend/internal/platform/tracing"
	"github.com/smarties/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLog *logger.Logger) error {
	appLog.Info("starting Smarties backend",
		"version", httpDelivery.Version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache_type", cfg.Cache.Type,
		"similarity_backend", cfg.Similarity.Backend,
	)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: httpDelivery.ServiceName,
		Environment: cfg.Server.Environment,
		Version:     httpDelivery.Version,
	}, appLog)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			appLog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	stats := make(map[string]httpDelivery.StatsFunc)

	// Scan cache
	var scanCache domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		scanCache = redisCache
	default:
		memoryCache := cache.NewMemoryCache()
		memoryCache.StartCleanup(ctx, cfg.Cache.CleanupInterval)
		stats["scan"] = func() interface{} { return memoryCache.Stats() }
		scanCache = memoryCache
	}

	// Reasoning client with its response cache
	responses, err := cache.NewLRUCache[string](cache.LRUConfig{
		MaxEntries: cfg.Reasoning.ResponseCacheSize,
		TTL:        cfg.Reasoning.ResponseCacheTTL,
	}, cache.StringSize)
	if err != nil {
		return err
	}
	llmConfig := llm.Config{
		APIKey:            cfg.Reasoning.APIKey,
		BaseURL:           cfg.Reasoning.BaseURL,
		Model:             cfg.Reasoning.Model,
		EmbeddingModel:    cfg.Embedding.Model,
		Dimensions:        cfg.Embedding.Dimensions,
		Timeout:           cfg.Reasoning.Timeout,
		MaxRetries:        cfg.Reasoning.MaxRetries,
		RequestsPerSecond: cfg.Reasoning.RatePerSecond,
		Burst:             cfg.Reasoning.Burst,
		AcceptReply:       usecase.ReplyUsable,
	}
	reasoning := llm.NewCompletionClient(llmConfig, responses, appLog)
	stats["responses"] = func() interface{} { return reasoning.ResponseCacheStats() }

	preprocessor := usecase.NewIngredientPreprocessor(appLog)

	// Embeddings are optional. A nil embedder leaves products without vectors.
	var embedder usecase.ProductEmbedder
	if cfg.Embedding.Enabled {
		vectors, err := cache.NewLRUCache[[]float32](cache.LRUConfig{
			MaxEntries: cfg.Embedding.CacheSize,
			TTL:        cfg.Embedding.CacheTTL,
		}, cache.VectorSize)
		if err != nil {
			return err
		}
		embeddingService := usecase.NewEmbeddingService(
			llm.NewEmbeddingClient(llmConfig, appLog),
			vectors,
			preprocessor,
			usecase.EmbeddingServiceConfig{Model: cfg.Embedding.Model, Dimensions: cfg.Embedding.Dimensions},
			appLog,
		)
		embedder = embeddingService
		stats["embeddings"] = func() interface{} { return embeddingService.Info() }
	}

	similarity, indexer, closeSimilarity, err := newSimilarityBackend(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer closeSimilarity()

	lookup := openfoodfacts.NewClient(openfoodfacts.Config{
		Locale:   cfg.OpenFoodFacts.Locale,
		Username: cfg.OpenFoodFacts.Username,
		Password: cfg.OpenFoodFacts.Password,
		Timeout:  cfg.OpenFoodFacts.Timeout,
	}, preprocessor, appLog)

	// Analysis pipeline
	table := guideline.NewDefaultTable()
	contexts := usecase.NewContextBuilder(similarity, table, usecase.ContextBuilderConfig{
		TopK:                cfg.Similarity.TopK,
		SimilarityThreshold: cfg.Similarity.Threshold,
	}, appLog)
	policy := confidencePolicy(cfg.Confidence)
	analyzer := usecase.NewComplianceAnalyzer(
		reasoning,
		usecase.NewEvidenceScreen(table, preprocessor, usecase.ScreenConfig{}),
		usecase.NewPromptBuilder(cfg.Reasoning.Temperature, cfg.Reasoning.MaxTokens, preprocessor),
		usecase.AnalyzerConfig{
			Timeout:     cfg.Reasoning.Timeout,
			Temperature: cfg.Reasoning.Temperature,
			MaxTokens:   cfg.Reasoning.MaxTokens,
			Confidence:  policy,
		},
		appLog,
	)
	orchestrator := usecase.NewFamilyOrchestrator(contexts, analyzer, cfg.Family.MaxConcurrency, policy.Fallback, appLog)
	scans := usecase.NewScanService(
		scanCache,
		lookup,
		embedder,
		indexer,
		orchestrator,
		usecase.ScanServiceConfig{CacheTTL: cfg.Cache.TTL},
		appLog,
	)

	handler := httpDelivery.NewHandler(scans, appLog)
	for name, fn := range stats {
		handler.RegisterStats(name, fn)
	}
	router := httpDelivery.SetupRouter(cfg, handler, appLog)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appLog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newSimilarityBackend returns nil interfaces for the "none" backend so the
// pipeline skips similarity entirely.
func newSimilarityBackend(ctx context.Context, cfg *config.Config, appLog *logger.Logger) (domain.SimilaritySearch, usecase.ProductIndexer, func(), error) {
	switch cfg.Similarity.Backend {
	case "memory":
		index := vectorindex.NewMemoryIndex()
		return index, index, func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Similarity.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect similarity database: %w", err)
		}
		store := pgvector.NewStore(pool, appLog)
		if err := store.EnsureSchema(ctx, cfg.Embedding.Dimensions); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return store, store, pool.Close, nil
	default:
		return nil, nil, func() {}, nil
	}
}

func confidencePolicy(c config.ConfidenceConfig) usecase.ConfidencePolicy {
	return usecase.ConfidencePolicy{
		Base:                 c.Base,
		CompletenessWeight:   c.CompletenessWeight,
		SimilarProductsBonus: c.SimilarProductsBonus,
		SimilarProductsMin:   c.SimilarProductsMin,
		CertificationBonus:   c.CertificationBonus,
		CautionPenalty:       c.CautionPenalty,
		DangerPenalty:        c.DangerPenalty,
		Fallback:             c.Fallback,
		Degraded:             c.Degraded,
	}
}
