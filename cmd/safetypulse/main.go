package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/api"
	"github.com/safetypulse/safetypulse/pkg/cache"
	"github.com/safetypulse/safetypulse/pkg/config"
	"github.com/safetypulse/safetypulse/pkg/hierarchy"
	"github.com/safetypulse/safetypulse/pkg/identity"
	"github.com/safetypulse/safetypulse/pkg/observability"
	"github.com/safetypulse/safetypulse/pkg/reports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing and metrics export
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.OTelEnabled,
		Endpoint:       cfg.OTelEndpoint,
		ServiceName:    cfg.OTelServiceName,
		ServiceVersion: cfg.OTelServiceVersion,
		Insecure:       true,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := accesscontrol.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database ready")

	// Cache: Redis when configured, in-process LRU otherwise
	var accessCache cache.Cache
	var redisClient *cache.Redis
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		accessCache = redisClient
		logger.WithField("addr", cfg.RedisAddr).Info("Using Redis cache")
	} else {
		memCache, err := cache.NewMemory(cfg.CacheMaxItems, cfg.CacheTTL)
		if err != nil {
			log.Fatalf("Failed to create cache: %v", err)
		}
		accessCache = memCache
		logger.Info("Using in-process cache")
	}

	// Hierarchy catalog
	catalog := hierarchy.NewLoader(hierarchy.LoaderConfig{
		CatalogURL:  cfg.CatalogURL,
		AliasesURL:  cfg.AliasesURL,
		CatalogFile: cfg.CatalogFile,
		AliasesFile: cfg.AliasesFile,
		CacheTTL:    cfg.CacheTTL,
	},
		hierarchy.WithLoaderCache(accessCache),
		hierarchy.WithLoaderLogger(logger),
		hierarchy.WithLoaderMetrics(metrics),
	)
	if err := catalog.Load(ctx); err != nil {
		log.Fatalf("Failed to load hierarchy catalog: %v", err)
	}
	go func() {
		if err := catalog.Watch(ctx, cfg.CatalogRefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Catalog watcher stopped")
		}
	}()

	// Scheduled catalog refresh
	scheduler := cron.New()
	if cfg.CatalogRefreshCron != "" {
		_, err = scheduler.AddFunc(cfg.CatalogRefreshCron, func() {
			refreshCtx, refreshCancel := context.WithTimeout(context.Background(), time.Minute)
			defer refreshCancel()
			if err := catalog.Load(refreshCtx); err != nil {
				logger.WithError(err).Warn("Scheduled catalog refresh failed")
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule catalog refresh: %v", err)
		}
	}
	scheduler.Start()

	// Access resolution
	store := accesscontrol.NewStore(db).WithMetrics(metrics)
	permResolver := accesscontrol.NewPermissionResolver(store)
	accessResolver := accesscontrol.NewUserAccessResolver(store, permResolver,
		accesscontrol.WithCache(accessCache, cfg.ResolverCacheTTL),
		accesscontrol.WithScanLimit(cfg.ResolverScanLimit),
		accesscontrol.WithLogger(logger),
		accesscontrol.WithMetrics(metrics),
	)

	// Reports
	reportStore := reports.NewStore(db)
	reportService := reports.NewService(reportStore, logger)
	if cfg.S3Bucket != "" {
		attachments, err := reports.NewAttachmentStore(ctx, reports.AttachmentConfig{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			log.Fatalf("Failed to initialize attachment store: %v", err)
		}
		if err := attachments.HealthCheck(ctx); err != nil {
			logger.WithError(err).Warn("Attachment bucket not reachable at startup")
		}
		reportService = reportService.WithAttachments(attachments)
		logger.WithField("bucket", cfg.S3Bucket).Info("Attachment storage enabled")
	}

	// Identity
	var sessions identity.SessionProvider
	if cfg.DevAuthHeaders {
		logger.Warn("Development header authentication enabled")
		sessions = &identity.StaticProvider{AdminGroup: cfg.AdminGroup}
	} else {
		sessions, err = identity.NewOIDCProvider(ctx, identity.OIDCConfig{
			IssuerURL:  cfg.OIDCIssuerURL,
			ClientID:   cfg.OIDCClientID,
			AdminGroup: cfg.AdminGroup,
		})
		if err != nil {
			log.Fatalf("Failed to initialize OIDC provider: %v", err)
		}
	}

	server := api.NewServer(sessions, accessResolver, catalog, reportService,
		api.WithAdminStore(store),
		api.WithLogger(logger),
		api.WithMetrics(metrics),
	)

	apiServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Health and metrics on a separate listener so probes stay up even when
	// the API listener is saturated.
	var redisConn *redis.Client
	if redisClient != nil {
		redisConn = redisClient.Client()
	}
	health := observability.NewHealthChecker(db, redisConn)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health/live", health.Liveness)
	healthMux.HandleFunc("/health/ready", health.Readiness)
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{Addr: cfg.HealthAddr, Handler: healthMux}

	go func() {
		logger.WithField("addr", cfg.HealthAddr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down gracefully")

	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Health server shutdown failed")
	}
	if otelProviders != nil {
		if err := observability.ShutdownOTel(shutdownCtx, otelProviders, logger); err != nil {
			logger.WithError(err).Error("Telemetry shutdown failed")
		}
	}
	logger.Info("Server stopped")
}
