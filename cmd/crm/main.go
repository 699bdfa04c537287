package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/config"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/handler"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/cache"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/configstore"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/observability"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/resilience"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/infra/supabase"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("config_db_path", cfg.ConfigDBPath),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	if cfg.TracingOn {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "crm-backend")
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	profileCache := cache.New[*domain.UserProfile](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Remote store ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Local config store ---
	cfgStore, err := configstore.Open(cfg.ConfigDBPath, logger)
	if err != nil {
		logger.Fatal("failed to open config store", zap.Error(err))
	}
	defer cfgStore.Close()

	// --- Services ---
	pipelineSvc, err := service.NewPipelineService(store, cfgStore, metrics, logger)
	if err != nil {
		logger.Fatal("failed to init pipeline service", zap.Error(err))
	}
	contactsSvc := service.NewContactsService(store, store, bulkhead, metrics, cfg.ImportMaxRows, logger)
	leadsSvc := service.NewLeadsService(store, store, store, pipelineSvc, bulkhead, metrics, cfg.ImportMaxRows, logger)
	fieldsSvc := service.NewFieldsService(store, logger)
	scoringSvc := service.NewScoringService(store, logger)
	groupsSvc := service.NewGroupsService(store, store, logger)
	activitySvc := service.NewActivityService(store, logger)
	authSvc := service.NewAuthService(store, store, profileCache, metrics, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	usersSvc := service.NewUsersService(store, store, authSvc, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Contacts:   contactsSvc,
		Leads:      leadsSvc,
		Pipeline:   pipelineSvc,
		Fields:     fieldsSvc,
		Scoring:    scoringSvc,
		Groups:     groupsSvc,
		Users:      usersSvc,
		Activities: activitySvc,
		Auth:       authSvc,
		Metrics:    metrics,
		Logger:     logger,
		CORSOrigin: cfg.CORSOrigin,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
