package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/luneapp/companion/internal/analysis"
	"github.com/luneapp/companion/internal/archive"
	"github.com/luneapp/companion/internal/catalog"
	"github.com/luneapp/companion/internal/config"
	"github.com/luneapp/companion/internal/convmem"
	"github.com/luneapp/companion/internal/engine"
	"github.com/luneapp/companion/internal/generation"
	"github.com/luneapp/companion/internal/httpapi"
	"github.com/luneapp/companion/internal/observability"
	"github.com/luneapp/companion/internal/postprocess"
	"github.com/luneapp/companion/internal/prompt"
	"github.com/luneapp/companion/internal/relevance"
	"github.com/luneapp/companion/internal/style"
)

func main() {
	// Local development convenience; real deployments set the environment.
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "companion",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", "err", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	stages := observability.NewStageWindow(256)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("catalog load failed", "err", err)
	}
	logger.Info("catalog loaded", "snippets", cat.Size())

	analyzer, err := analysis.NewAnalyzer(analysis.DefaultVocabularies())
	if err != nil {
		logger.Fatal("analyzer init failed", "err", err)
	}

	store := convmem.NewStore(convmem.Options{
		TTL:          cfg.MemoryTTL,
		MaxTurns:     cfg.MaxStoredTurns,
		RecentWindow: cfg.RecentWindow,
	}, convmem.NewSummarizer(analyzer))

	generator, err := generation.New(generation.Config{
		Mode:    cfg.GeneratorMode,
		HTTPURL: cfg.GeneratorHTTPURL,
	})
	if err != nil {
		logger.Fatal("generator init failed", "err", err)
	}

	ctx := context.Background()
	archiveStore, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("archive init failed", "err", err)
	}
	defer archiveStore.Close()

	eng := engine.New(engine.Options{
		Store:    store,
		Analyzer: analyzer,
		Selector: relevance.NewSelector(cat, relevance.Options{
			MaxSnippets:         cfg.MaxSnippets,
			MinQuality:          cfg.MinQualityScore,
			MinPreferenceRating: cfg.MinPreferenceRating,
			ResetRatio:          cfg.RepetitionResetRatio,
		}),
		Styler:            style.NewCalculator(analyzer),
		Assembler:         prompt.NewAssembler(cfg.AssistantName),
		Enricher:          postprocess.NewEnricher(),
		Generator:         generator,
		Archive:           archiveStore,
		Metrics:           metrics,
		Stages:            stages,
		Logger:            logger,
		TokenBudget:       cfg.TokenBudget,
		GenerationTimeout: cfg.GenerationTimeout,
	})

	api := httpapi.New(cfg, eng, cat, metrics, stages, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	store.StartJanitor(runCtx, cfg.MemorySweepInterval, func(evicted int) {
		if evicted > 0 {
			logger.Info("memory sweep", "evicted", evicted)
		}
		metrics.SweepEvictions.Add(float64(evicted))
		metrics.ActiveConversations.Set(float64(store.ActiveCount()))
	})

	go func() {
		logger.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "err", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
