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

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/ashok1995/kite-services-sub000/internal/history"
	"github.com/ashok1995/kite-services-sub000/internal/httpapi"
	"github.com/ashok1995/kite-services-sub000/internal/marketctx"
	"github.com/ashok1995/kite-services-sub000/internal/marketdata"
	"github.com/ashok1995/kite-services-sub000/internal/notify"
	"github.com/ashok1995/kite-services-sub000/internal/platform/aws"
	"github.com/ashok1995/kite-services-sub000/internal/platform/cache"
	"github.com/ashok1995/kite-services-sub000/internal/platform/config"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
	"github.com/ashok1995/kite-services-sub000/internal/platform/resilience"
	"github.com/ashok1995/kite-services-sub000/internal/refresh"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("Loading configuration...")
	cfg := config.MustLoad(os.Getenv("CONTEXT_CONFIG"))

	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("market-context", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracerProvider, err := observability.NewTracerProvider(ctx, "market-context", cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer tracerProvider.Shutdown(ctx)

	tracer := observability.NewNoopTracer()
	if cfg.Observability.Tracing.Enabled {
		tracer = observability.NewTracer("market-context")
	}

	logger.Info("observability setup complete")

	// Cache store: redis when enabled, in-process LRU otherwise. Either way
	// the store is fail-open and never blocks context resolution.
	var store cache.Store
	if cfg.Redis.Enabled {
		redisStore := cache.NewRedisStore(cache.RedisOptions{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		// Memory L1 in front of Redis keeps hot buckets off the network
		store = cache.NewLayeredStore(cache.NewMemoryStore(cfg.Cache.MemoryMaxSize), redisStore)
	} else {
		store = cache.NewMemoryStore(cfg.Cache.MemoryMaxSize)
	}
	defer store.Close()

	// Upstream gateways share one rate limiter so the broker's account-wide
	// quota is respected across endpoints
	limiter := resilience.NewRateLimiterFromRPM(
		cfg.Upstream.RateLimit.RequestsPerMinute,
		cfg.Upstream.RateLimit.Burst,
	)
	tokens := marketdata.StaticTokenSource(cfg.Upstream.AccessToken)

	brokerCfg := marketdata.ClientConfig{
		BaseURL:        cfg.Upstream.BrokerBaseURL,
		APIKey:         cfg.Upstream.APIKey,
		Tokens:         tokens,
		RequestTimeout: cfg.Upstream.RequestTimeout,
		Limiter:        limiter,
		Logger:         logger,
		Metrics:        metrics,
	}
	marketCfg := brokerCfg
	marketCfg.BaseURL = cfg.Upstream.MarketBaseURL

	generator := marketctx.NewContextGenerator(marketctx.GeneratorConfig{
		Quotes:     marketdata.NewBrokerQuoteClient(brokerCfg, cfg.Upstream.QuoteBatchMax),
		Indices:    marketdata.NewIndexClient(marketCfg),
		Sectors:    marketdata.NewSectorClient(marketCfg),
		Volatility: marketdata.NewVolatilityClient(marketCfg),
		Watchlist:  cfg.Upstream.Watchlist,
		Logger:     logger,
	})

	registry, err := marketctx.NewRegistry(map[marketctx.Tier]time.Duration{
		marketctx.TierPrimary:  time.Duration(cfg.Tiers.PrimaryTTL) * time.Second,
		marketctx.TierDetailed: time.Duration(cfg.Tiers.DetailedTTL) * time.Second,
		marketctx.TierIntraday: time.Duration(cfg.Tiers.IntradayTTL) * time.Second,
		marketctx.TierSwing:    time.Duration(cfg.Tiers.SwingTTL) * time.Second,
		marketctx.TierLongTerm: time.Duration(cfg.Tiers.LongTermTTL) * time.Second,
	})
	if err != nil {
		logger.LogError(ctx, "invalid tier configuration", err)
		log.Fatalf("Invalid tier configuration: %v", err)
	}

	orchestrator := marketctx.NewOrchestrator(marketctx.OrchestratorConfig{
		Store:             store,
		Keys:              marketctx.KeyScheme{Prefix: cfg.Cache.KeyPrefix},
		Registry:          registry,
		Generator:         generator,
		GenerationTimeout: cfg.HTTP.GenerationTimeout,
		Logger:            logger,
		Metrics:           metrics,
		Tracer:            tracer,
	})

	// AWS-backed extras (alerting, history) only when configured
	var awsCfg awssdk.Config
	if cfg.Alerting.Enabled || cfg.History.Enabled {
		awsCfg, err = aws.LoadAWSConfig(ctx, aws.Config{
			Region:   cfg.AWS.Region,
			Endpoint: cfg.AWS.Endpoint,
		})
		if err != nil {
			logger.LogError(ctx, "failed to load AWS config", err)
			log.Fatalf("Failed to load AWS config: %v", err)
		}
	}

	var monitor *notify.Monitor
	if cfg.Alerting.Enabled {
		publisher, err := notify.NewSNSPublisher(notify.SNSPublisherConfig{
			SNSClient: aws.NewSNSClient(aws.SNSClientConfig{
				AWSConfig: awsCfg,
				Logger:    logger,
				Metrics:   metrics,
			}),
			TopicARN: cfg.Alerting.SNSTopicARN,
			Logger:   logger,
			Metrics:  metrics,
		})
		if err != nil {
			logger.LogError(ctx, "failed to create alert publisher", err)
			log.Fatalf("Failed to create alert publisher: %v", err)
		}
		monitor = notify.NewMonitor(notify.MonitorConfig{
			Publisher:  publisher,
			ScoreFloor: cfg.Alerting.ScoreFloor,
			Logger:     logger,
		})
	} else {
		monitor = notify.NewMonitor(notify.MonitorConfig{
			Publisher:  notify.NewNoOpPublisher(logger),
			ScoreFloor: cfg.Alerting.ScoreFloor,
			Logger:     logger,
		})
	}

	var recorder *history.Recorder
	if cfg.History.Enabled {
		recorder, err = history.NewRecorder(history.RecorderConfig{
			Client:    dynamodb.NewFromConfig(awsCfg),
			TableName: cfg.History.DynamoDBTable,
			Retention: time.Duration(cfg.History.RetentionDays) * 24 * time.Hour,
			Logger:    logger,
		})
		if err != nil {
			logger.LogError(ctx, "failed to create history recorder", err)
			log.Fatalf("Failed to create history recorder: %v", err)
		}
	}

	if cfg.Refresh.Enabled {
		tiers, err := parseRefreshTiers(cfg.Refresh.Tiers)
		if err != nil {
			logger.LogError(ctx, "invalid refresh configuration", err)
			log.Fatalf("Invalid refresh configuration: %v", err)
		}
		refresher, err := refresh.New(refresh.Config{
			Orchestrator: orchestrator,
			Tiers:        tiers,
			Schedule:     cfg.Refresh.Schedule,
			Parallelism:  cfg.Refresh.Workers,
			Logger:       logger,
			Metrics:      metrics,
		})
		if err != nil {
			logger.LogError(ctx, "failed to create refresher", err)
			log.Fatalf("Failed to create refresher: %v", err)
		}
		refresher.Start()
		defer refresher.Stop()
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Orchestrator: orchestrator,
		Store:        store,
		Monitor:      monitor,
		Recorder:     recorder,
		Logger:       logger,
		Metrics:      metrics,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("http server listening", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError(ctx, "http server failed", err)
			cancel()
		}
	}()

	if cfg.Observability.Metrics.Enabled {
		go startMetricsServer(cfg.Observability.Metrics.Port, metrics, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received, gracefully stopping...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.LogError(shutdownCtx, "http shutdown failed", err)
	}

	logger.Info("service stopped")
}

func startMetricsServer(port int, metrics *observability.Metrics, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	logger.Info("metrics server listening", "port", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		logger.LogError(context.Background(), "metrics server failed", err)
	}
}

func parseRefreshTiers(names []string) ([]marketctx.Tier, error) {
	tiers := make([]marketctx.Tier, 0, len(names))
	for _, name := range names {
		tier, err := marketctx.ParseTier(name)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}
