package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/api"
	"github.com/xaenox/shopbot-experiment/internal/assistant"
	"github.com/xaenox/shopbot-experiment/internal/bot"
	"github.com/xaenox/shopbot-experiment/internal/catalog"
	"github.com/xaenox/shopbot-experiment/internal/experiment"
	"github.com/xaenox/shopbot-experiment/internal/preference"
	"github.com/xaenox/shopbot-experiment/internal/storage"
	"github.com/xaenox/shopbot-experiment/pkg/config"
)

const configPath = "config.yaml"

func main() {
	bootstrap, _ := zap.NewProduction()

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		bootstrap.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		bootstrap.Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	// Load the catalog up front; the service cannot run without it
	products := catalog.NewStore(catalog.NewCSVProvider(cfg.Catalog.Path))
	if _, err := products.Products(); err != nil {
		logger.Fatal("Failed to load product catalog", zap.Error(err), zap.String("path", cfg.Catalog.Path))
	}
	logger.Info("Loaded product catalog", zap.Int("products", products.Len()))

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	client := assistant.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.MaxTokens,
		cfg.LLM.Temperature,
		logger,
	)
	orchestrator := experiment.NewOrchestrator(products, client, cfg.LLM.Timeout, logger)
	service := experiment.NewService(
		store,
		preference.NewAnalyzer(),
		orchestrator,
		experiment.NewRandomAssigner(0),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      api.NewRouter(api.NewHandler(service, logger), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, service, cfg.Telegram.SessionTTL, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		go func() {
			if err := b.Start(ctx); err != nil {
				logger.Error("Bot error", zap.Error(err))
			}
		}()
	} else {
		logger.Info("Telegram token not set, bot disabled")
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level

	return zcfg.Build()
}
