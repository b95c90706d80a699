package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/convodesk/platform/internal/api/router"
	appconfig "github.com/convodesk/platform/internal/config"
	"github.com/convodesk/platform/internal/conversation"
	"github.com/convodesk/platform/internal/knowledge"
	"github.com/convodesk/platform/internal/leads"
	"github.com/convodesk/platform/internal/observability/metrics"
	"github.com/convodesk/platform/internal/rules"
	"github.com/convodesk/platform/pkg/logging"
)

func main() {
	// Local development convenience; in real deployments the environment
	// comes from the orchestrator.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting convodesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	ctx := context.Background()

	// Storage. Without DATABASE_URL everything runs in memory, which keeps
	// local development and demos dependency-free.
	var (
		ruleRepo      rules.Repository
		leadRepo      leads.Repository
		knowledgeRepo knowledge.Repository
		convStore     conversation.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		ruleRepo = rules.NewPostgresRepository(pool)
		leadRepo = leads.NewPostgresRepository(pool)
		knowledgeRepo = knowledge.NewPostgresRepository(pool)
		convStore = conversation.NewPostgresStore(pool)
		logger.Info("using postgres storage")
	} else {
		ruleRepo = rules.NewInMemoryRepository()
		leadRepo = leads.NewInMemoryRepository()
		knowledgeRepo = knowledge.NewInMemoryRepository()
		convStore = conversation.NewInMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Contact memory. Optional: without Redis the pipeline still answers,
	// it just loses short-term context between messages.
	var memoryStore *conversation.MemoryStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, contact memory disabled", "error", err)
		} else {
			memoryStore = conversation.NewMemoryStore(client, cfg.MemoryTTL)
			defer func() { _ = client.Close() }()
		}
	}

	var responder conversation.Responder
	if cfg.OpenAIAPIKey != "" {
		r, err := conversation.NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AssistantTimeout)
		if err != nil {
			logger.Error("failed to configure assistant", "error", err)
			os.Exit(1)
		}
		responder = r
		logger.Info("assistant enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, assistant disabled")
	}

	matcher := rules.NewMatcher(ruleRepo, logger, engineMetrics)
	service := conversation.NewService(matcher, convStore, logger, conversation.ServiceOptions{
		Memory:        memoryStore,
		Leads:         leadRepo,
		Knowledge:     knowledge.NewSnippetSource(knowledgeRepo),
		Responder:     responder,
		Metrics:       engineMetrics,
		FallbackReply: cfg.FallbackReply,
	})

	thresholds := leads.Thresholds{Hot: cfg.ScoreHotThreshold, Warm: cfg.ScoreWarmThreshold}
	signalsProvider := conversation.NewLeadSignalsProvider(convStore, leadRepo)

	r := router.New(&router.Config{
		Logger:              logger,
		RulesHandler:        rules.NewHandler(ruleRepo, matcher, logger),
		LeadsHandler:        leads.NewHandler(leadRepo, signalsProvider, thresholds, logger),
		KnowledgeHandler:    knowledge.NewHandler(knowledgeRepo, logger),
		ConversationHandler: conversation.NewHandler(service, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
