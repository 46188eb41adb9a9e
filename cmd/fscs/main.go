package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neooriginal/FSCS/internal/api"
	"github.com/neooriginal/FSCS/internal/chat"
	"github.com/neooriginal/FSCS/internal/chatlog"
	"github.com/neooriginal/FSCS/internal/config"
	"github.com/neooriginal/FSCS/internal/finetune"
	"github.com/neooriginal/FSCS/internal/hermes"
	"github.com/neooriginal/FSCS/internal/metrics"
	"github.com/neooriginal/FSCS/internal/modelcache"
	"github.com/neooriginal/FSCS/internal/openai"
	"github.com/neooriginal/FSCS/internal/session"
	"github.com/neooriginal/FSCS/internal/slack"
	"github.com/neooriginal/FSCS/internal/training"
	"github.com/neooriginal/FSCS/internal/userdata"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("fscs starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.Default()
	m := metrics.New()

	// Model list cache
	var cache modelcache.Cache = modelcache.NewMemoryCache()
	if cfg.RedisURL != "" {
		rc, err := modelcache.NewRedisCacheFromURL(ctx, cfg.RedisURL, "fscs:")
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		cache = rc
		slog.Info("redis cache connected")
	}
	models := modelcache.NewLoader(cache, cfg.ModelCacheTTL, logger)

	// NATS/Hermes (optional)
	var events hermes.Publisher = hermes.Noop{}
	if cfg.NatsURL != "" {
		hc, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hc.Close()
		events = hc
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack poster (optional)
	var notifier finetune.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, job notifications disabled")
	}

	provider := openai.NewClient(cfg.OpenAIBaseURL)
	sessions := session.NewMemoryStore()
	workspace := userdata.NewWorkspace(cfg.UserDataDir, cfg.UserDataSubdir)

	orch := finetune.New(finetune.Config{
		BaseModel:  cfg.FineTuneBaseModel,
		Provider:   provider,
		Normalizer: chatlog.NewNormalizer(chatlog.DefaultRegistry(), logger),
		Compiler:   training.NewCompiler(logger),
		Workspace:  workspace,
		Sessions:   sessions,
		Models:     models,
		Metrics:    m,
		Events:     events,
		Notifier:   notifier,
		Logger:     logger,
	})

	chatSvc := chat.NewService(provider, orch, sessions, cfg.DefaultChatModel, cfg.CriticModel, m, events, logger)

	// HTTP API
	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}, api.Deps{
		Chat:      chatSvc,
		FineTune:  orch,
		Workspace: workspace,
		Sessions:  sessions,
		Metrics:   m,
		Logger:    logger,
	})
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("fscs ready", "port", cfg.Port, "base_model", cfg.FineTuneBaseModel)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("fscs stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
