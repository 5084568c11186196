package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"call-intake/internal/cache"
	"call-intake/internal/config"
	"call-intake/internal/crm"
	"call-intake/internal/httpserver"
	"call-intake/internal/ingest"
	"call-intake/internal/logging"
	"call-intake/internal/metrics"
	"call-intake/internal/nlu"
	"call-intake/internal/repo"
	"call-intake/internal/voice"
	"call-intake/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting call-intake", "env", cfg.AppEnv, "store", cfg.StoreDriver)

	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return fmt.Errorf("load location: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := repo.Open(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("store migrated")

	var (
		callers     *cache.Callers
		redisClient *cache.Redis
	)
	if cfg.RedisAddr != "" {
		redisClient = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
		callers = cache.NewCallers(redisClient, cfg.CallerCacheTTL, logger, metricRegistry)
	} else {
		logger.Info("redis not configured, caller cache disabled")
	}

	geminiClient := nlu.New(nlu.Config{
		BaseURL:   cfg.GeminiBaseURL,
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.GeminiModel,
		Timeout:   cfg.GeminiTimeout,
		RateLimit: cfg.GeminiRateLimit,
	}, logger, metricRegistry)
	analyzer := nlu.NewAnalyzer(geminiClient, logger, metricRegistry, loc)

	if !cfg.CRMEnabled() {
		logger.Warn("CRM_AUTH_CODE not set, crm forwarding disabled")
	}
	forwarder := crm.New(crm.Config{
		BaseURL:  cfg.CRMBaseURL,
		AuthCode: cfg.CRMAuthCode,
		Encoding: crm.Encoding(cfg.CRMEncoding),
		Timeout:  cfg.CRMTimeout,
		Location: loc,
	}, logger, metricRegistry)

	pipeline := ingest.New(logger, metricRegistry, repository, callers, analyzer, forwarder, ingest.Options{
		ToolCallEnabled: cfg.ToolCallEnabled,
		Location:        loc,
	})
	webhookHandler := voice.NewWebhookHandler(logger, metricRegistry, pipeline)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Handlers{
		VoiceWebhook: webhookHandler,
	}, cfg.PublicBasePath)
	deps := httpserver.Dependencies{Store: repository}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	httpSrv.SetDependencies(deps)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
