package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	analyticsapp "github.com/recipefy/backend/internal/application/analytics"
	billingapp "github.com/recipefy/backend/internal/application/billing"
	usageapp "github.com/recipefy/backend/internal/application/usage"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/infrastructure/auth"
	"github.com/recipefy/backend/internal/infrastructure/cache"
	"github.com/recipefy/backend/internal/infrastructure/config"
	"github.com/recipefy/backend/internal/infrastructure/event"
	"github.com/recipefy/backend/internal/infrastructure/logger"
	"github.com/recipefy/backend/internal/infrastructure/persistence"
	"github.com/recipefy/backend/internal/infrastructure/scheduler"
	"github.com/recipefy/backend/internal/infrastructure/storage"
	"github.com/recipefy/backend/internal/infrastructure/telemetry"
	"github.com/recipefy/backend/internal/interfaces/http/handler"
	"github.com/recipefy/backend/internal/interfaces/http/middleware"
	"github.com/recipefy/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/recipefy/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Recipefy Usage API
//	@version		1.0
//	@description	Usage accounting service: quota gate, event ingestion and usage analytics
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/recipefy/backend
//	@contact.email	support@recipefy.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Service key authentication for internal collaborator services

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Recipefy Usage Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize telemetry providers. Both return no-op implementations when
	// telemetry is disabled, so downstream wiring stays unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database query tracing (otelgorm-style callbacks)
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		} else {
			log.Info("Database tracing enabled",
				zap.Duration("slow_query_threshold", cfg.Telemetry.DBSlowQueryThresh),
			)
		}
	}

	// Database metrics (query durations, connection pool stats)
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.Enabled
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(context.Background())
		defer dbMetrics.Stop()
	}

	// Initialize repositories
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	counterRepo := persistence.NewGormCounterRepository(db.DB)
	usageEventRepo := persistence.NewGormUsageEventRepository(db.DB)
	legacyRollupRepo := persistence.NewGormLegacyRollupRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Auth services (user JWTs plus hashed service keys for collaborators)
	jwtService := auth.NewJWTService(cfg.JWT)
	serviceKeyVerifier := auth.NewServiceKeyVerifier(cfg.ServiceAuth)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	gateService := usageapp.NewGateService(txScope, profileRepo, counterRepo, log)
	recorder := usageapp.NewEventRecorder(usageapp.RecorderConfig{
		Async:         cfg.Usage.RecorderAsync,
		BufferSize:    cfg.Usage.RecorderBufferSize,
		BatchSize:     cfg.Usage.RecorderBatchSize,
		FlushInterval: cfg.Usage.RecorderFlushInterval,
	}, usageEventRepo, log)
	ingestService := usageapp.NewIngestService(recorder, log)
	profileSyncService := billingapp.NewProfileSyncService(profileRepo, log)
	summaryService := analyticsapp.NewSummaryService(profileRepo, usageEventRepo, counterRepo, legacyRollupRepo, log)

	// Object storage for summary exports. The stub keeps exports working in
	// environments without S3 credentials; download URLs then point nowhere.
	var objectStorage analyticsapp.ObjectStorageService
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
		log.Info("Object storage enabled",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("endpoint", cfg.Storage.Endpoint),
		)
	} else {
		objectStorage = storage.NewStubObjectStorage()
		log.Info("Object storage disabled, using stub backend for exports")
	}

	exportConfig := analyticsapp.DefaultExportConfig()
	if cfg.Storage.PresignExpiration > 0 {
		exportConfig.DownloadURLExpiry = cfg.Storage.PresignExpiration
	}
	exportService := analyticsapp.NewExportService(summaryService, objectStorage, exportConfig, log)

	stripeWebhookService := billingapp.NewStripeWebhookService(billingapp.StripeWebhookServiceConfig{
		WebhookSecret: cfg.Stripe.WebhookSecret,
		ProfileSync:   profileSyncService,
		ProfileRepo:   profileRepo,
		EventBus:      eventBus,
		Logger:        log,
	})

	// Summary cache with event-driven invalidation. Redis is preferred so
	// replicas share entries; a connection failure falls back to per-process
	// memory rather than aborting startup.
	if cfg.Usage.SummaryCacheEnabled {
		var summaryCache analyticsapp.SummaryCache
		redisCache, err := cache.NewRedisSummaryCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cache.WithSummaryTTL(cfg.Usage.SummaryCacheTTL), cache.WithSummaryCacheLogger(log))
		if err != nil {
			log.Warn("Redis summary cache unavailable, falling back to in-memory", zap.Error(err))
			summaryCache = cache.NewInMemorySummaryCache()
		} else {
			summaryCache = redisCache
		}
		defer func() {
			if err := summaryCache.Close(); err != nil {
				log.Error("Error closing summary cache", zap.Error(err))
			}
		}()

		summaryService.SetSummaryCache(summaryCache, cfg.Usage.SummaryCacheTTL)

		invalidator := cache.NewSummaryCacheInvalidator(summaryCache, cache.WithInvalidatorLogger(log))
		eventBus.Subscribe(invalidator)
		defer func() {
			if err := invalidator.Close(); err != nil {
				log.Error("Error closing summary cache invalidator", zap.Error(err))
			}
		}()

		log.Info("Summary cache enabled",
			zap.Duration("ttl", cfg.Usage.SummaryCacheTTL),
			zap.Strings("invalidation_events", invalidator.EventTypes()),
		)
	}

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	gateService.SetEventPublisher(eventBus)
	recorder.SetEventPublisher(eventBus)

	// Domain metrics (gate decisions, ingest throughput, profile gauges)
	if meterProvider.IsEnabled() {
		usageMetrics, err := telemetry.NewUsageMetrics(telemetry.UsageMetricsConfig{
			Meter:           meterProvider.Meter("recipefy-usage"),
			Logger:          log,
			ProfileProvider: telemetry.NewGormProfileCountProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize usage metrics", zap.Error(err))
		} else {
			gateService.SetUsageMetrics(usageMetrics)
			recorder.SetUsageMetrics(usageMetrics)
			summaryService.SetUsageMetrics(usageMetrics)
			usageMetrics.StartPeriodicCollection(context.Background(), 0)
			defer usageMetrics.Stop()
		}
	}

	// Idempotency store for the ingest endpoints (Redis, in-memory fallback)
	if cfg.Usage.IdempotencyEnabled {
		idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(true),
		)
		idempotencyStore, err := idempotencyFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		ingestService.SetIdempotencyStore(idempotencyStore, shared.IdempotencyConfig{
			TTL:     cfg.Usage.IdempotencyTTL,
			Enabled: true,
		})
		log.Info("Ingest idempotency enabled", zap.Duration("ttl", cfg.Usage.IdempotencyTTL))
	}

	// Start the event recorder. In async mode this launches the batch writer;
	// the deferred Stop flushes buffered events after the server drains.
	recorder.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := recorder.Stop(ctx); err != nil {
			log.Error("Error stopping event recorder", zap.Error(err))
		}
	}()

	// Initialize summary warm scheduler (if enabled)
	if cfg.Scheduler.Enabled {
		warmScheduler := scheduler.NewSummaryWarmScheduler(summaryService, log, scheduler.SummaryWarmSchedulerConfig{
			Enabled:     cfg.Scheduler.Enabled,
			Interval:    cfg.Scheduler.Interval,
			WarmTimeout: cfg.Scheduler.Timeout,
		})
		if err := warmScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start summary warm scheduler", zap.Error(err))
		}
		defer func() {
			if err := warmScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping summary warm scheduler", zap.Error(err))
			}
		}()
		log.Info("Summary warm scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Duration("timeout", cfg.Scheduler.Timeout),
		)
	}

	// Initialize HTTP handlers
	usageHandler := handler.NewUsageHandler(gateService, profileSyncService)
	usageEventHandler := handler.NewUsageEventHandler(ingestService)
	analyticsHandler := handler.NewAnalyticsHandler(summaryService, exportService)
	stripeWebhookHandler := handler.NewStripeWebhookHandler(stripeWebhookService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. Tracing/Metrics - OpenTelemetry instrumentation
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	// 9. ServiceAuth - Resolve X-API-Key into a service identity
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("recipefy-usage-http"), meterProvider.IsEnabled()))
		engine.Use(middleware.Profiling())
	}

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Service key authentication. Requests without X-API-Key pass through
	// untouched; a presented key must verify or the request ends here.
	if cfg.ServiceAuth.Enabled {
		engine.Use(middleware.ServiceAuthMiddleware(middleware.ServiceAuthConfig{
			Verifier: serviceKeyVerifier,
			Logger:   log,
		}))
		log.Info("Service key authentication enabled", zap.Int("keys", len(cfg.ServiceAuth.Keys)))
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint with access protection
	swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, middleware.JWTAuthMiddleware(jwtService))
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Stripe webhook endpoint (signature-verified, no JWT)
	// Called directly by Stripe, so it sits outside the authenticated router
	if cfg.Stripe.Enabled {
		webhookGroup := engine.Group("/api/v1/webhooks")
		webhookGroup.POST("/stripe", stripeWebhookHandler.HandleStripeWebhook)
		log.Info("Stripe webhook endpoint enabled")
	}

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Usage domain (quota status for the authenticated user)
	usageRoutes := router.NewDomainGroup("usage", "/usage")
	usageRoutes.GET("/status", usageHandler.GetQuotaStatus)

	// Internal usage domain (gate checks and event ingestion)
	// Consume accepts either a service key scoped to usage:consume or a user
	// JWT; the events endpoints are service-to-service only.
	internalRoutes := router.NewDomainGroup("internal-usage", "/internal/usage")
	internalRoutes.POST("/consume", usageHandler.ConsumeAction)
	internalRoutes.POST("/events", middleware.RequireServiceScope(auth.ScopeUsageIngest), usageEventHandler.RecordEvent)
	internalRoutes.POST("/events/batch", middleware.RequireServiceScope(auth.ScopeUsageIngest), usageEventHandler.RecordEventBatch)

	// Admin domain (usage analytics and exports)
	adminRoutes := router.NewDomainGroup("admin", "/admin")
	adminRoutes.Use(middleware.RequireAdmin())
	adminRoutes.GET("/usage/summary", analyticsHandler.GetUsageSummary)
	adminRoutes.POST("/usage/exports", analyticsHandler.ExportUsageSummary)

	// Register all domain groups
	r.Register(usageRoutes).
		Register(internalRoutes).
		Register(adminRoutes)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
