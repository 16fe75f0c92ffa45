// Package app wires configuration into the components every binary shares.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"ai-dslr-studio/internal/config"
	"ai-dslr-studio/internal/gemini"
	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/portfolio"
)

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Pipeline is the generation stack: credentials, the invoker and the batch
// orchestrator on top of it.
type Pipeline struct {
	Registry     *gemini.Registry
	Client       *gemini.Client
	Orchestrator *photoshoot.Orchestrator
}

func NewPipeline(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (*Pipeline, error) {
	registry := gemini.NewRegistry(gemini.RegistryOptions{
		Credentials: cfg.Credentials,
		HTTPClient:  httpClient,
		BaseURL:     cfg.GeminiBaseURL,
		APIVersion:  cfg.GeminiAPIVersion,
		Logger:      logger,
	})

	client, err := gemini.New(gemini.Options{
		Registry: registry,
		Model:    cfg.GeminiModel,
		Retries:  cfg.GeminiRetries,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	orchestrator, err := photoshoot.NewOrchestrator(photoshoot.Options{
		Invoker:       client,
		Logger:        logger,
		MaxConcurrent: cfg.BatchConcurrency,
		MinInterval:   cfg.BatchMinInterval,
	})
	if err != nil {
		return nil, err
	}

	return &Pipeline{Registry: registry, Client: client, Orchestrator: orchestrator}, nil
}

// WarnUnconfigured logs every backend that has no credential yet.
func WarnUnconfigured(cfg config.Config, logger *slog.Logger) {
	configured := make(map[photoshoot.Backend]bool)
	for _, backend := range cfg.ConfiguredBackends() {
		configured[backend] = true
	}
	for _, backend := range photoshoot.Backends() {
		if !configured[backend] {
			logger.Warn("backend not configured", "backend", string(backend), "env", backend.CredentialEnv())
		}
	}
}

// OpenPortfolio returns the configured store and a func that releases it.
func OpenPortfolio(ctx context.Context, cfg config.Config) (portfolio.Store, func() error, error) {
	switch cfg.PortfolioBackend {
	case config.PortfolioRedis:
		rdb, err := portfolio.Connect(ctx, portfolio.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.UseTLS,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := portfolio.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return store, rdb.Close, nil
	default:
		store, err := portfolio.NewFileStore(cfg.PortfolioPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open portfolio: %w", err)
		}
		return store, func() error { return nil }, nil
	}
}
