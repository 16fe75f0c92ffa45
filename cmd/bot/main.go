package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ai-dslr-studio/internal/app"
	"ai-dslr-studio/internal/config"
	"ai-dslr-studio/internal/handlers"
	"ai-dslr-studio/internal/httpclient"
	"ai-dslr-studio/internal/mediagroup"
	"ai-dslr-studio/internal/session"
	"ai-dslr-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg)
	app.WarnUnconfigured(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	pipeline, err := app.NewPipeline(cfg, httpClient, logger)
	if err != nil {
		logger.Error("pipeline init failed", "err", err)
		os.Exit(1)
	}

	store, closeStore, err := app.OpenPortfolio(ctx, cfg)
	if err != nil {
		logger.Error("portfolio init failed", "backend", string(cfg.PortfolioBackend), "err", err)
		os.Exit(1)
	}
	defer func() { _ = closeStore() }()

	handler, err := handlers.New(handlers.Options{
		Telegram:  tg,
		Generator: pipeline.Orchestrator,
		Backends:  pipeline.Registry,
		Sessions:  session.NewStore(session.Options{TTL: cfg.SessionTTL}),
		Portfolio: store,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("handler init failed", "err", err)
		os.Exit(1)
	}

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleMediaGroup(reqCtx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started",
		"username", tg.Username(),
		"model", pipeline.Client.Model(),
		"portfolio", string(cfg.PortfolioBackend),
		"batch_concurrency", cfg.BatchConcurrency,
	)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}
