package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	eventapp "github.com/procureflow/backend/internal/application/event"
	procureapp "github.com/procureflow/backend/internal/application/procurement"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/infrastructure/auth"
	"github.com/procureflow/backend/internal/infrastructure/cache"
	"github.com/procureflow/backend/internal/infrastructure/config"
	"github.com/procureflow/backend/internal/infrastructure/event"
	"github.com/procureflow/backend/internal/infrastructure/logger"
	"github.com/procureflow/backend/internal/infrastructure/persistence"
	"github.com/procureflow/backend/internal/infrastructure/telemetry"
	"github.com/procureflow/backend/internal/interfaces/http/handler"
	"github.com/procureflow/backend/internal/interfaces/http/middleware"
	"github.com/procureflow/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/procureflow/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			ProcureFlow API
//	@version		1.0
//	@description	Procurement reconciliation and ledger posting service: goods receipts, three-way matching, vendor bills and payments.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/procureflow/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, logCleanup := initLogger(cfg)
	defer logCleanup()

	log.Info("Starting ProcureFlow Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// repositories and stores
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	receiptRepo := persistence.NewGormGoodsReceiptRepository(db.DB)
	billRepo := persistence.NewGormVendorBillRepository(db.DB)
	matchRepo := persistence.NewGormThreeWayMatchRepository(db.DB)
	toleranceRepo := persistence.NewGormToleranceConfigRepository(db.DB)
	paymentRepo := persistence.NewGormVendorPaymentRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	journalRepo := persistence.NewGormJournalTransactionRepository(db.DB)
	billStore := persistence.NewGormBillPostingStore(db.DB)
	decisionStore := persistence.NewGormMatchDecisionStore(db.DB)
	sequences := persistence.NewGormSequenceGenerator(db.DB)
	auditSink := persistence.NewGormAuditSink(db.DB)
	taskService := persistence.NewGormTaskService(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	eventSerializer := event.NewVersionedSerializer(log)
	if err := event.RegisterAllEvents(eventSerializer); err != nil {
		log.Fatal("Failed to register event types", zap.Error(err))
	}

	// Aggregates persist together with their domain events through the
	// outbox publisher.
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	receiptRepo.SetOutboxEventSaver(outboxPublisher)
	matchRepo.SetOutboxEventSaver(outboxPublisher)
	billStore.SetOutboxEventSaver(outboxPublisher)
	decisionStore.SetOutboxEventSaver(outboxPublisher)

	// Redis-backed idempotency with in-memory fallback
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		idempotencyStore = idempotencyFactory.CreateInMemoryStore()
	}

	// application services
	receiptService := procureapp.NewReceiptService(receiptRepo, orderRepo, billRepo, billStore, accountRepo, sequences, log)
	matchService := procureapp.NewMatchService(matchRepo, orderRepo, receiptRepo, billRepo, toleranceRepo, accountRepo, decisionStore, sequences, log)
	billService := procureapp.NewBillService(billRepo, journalRepo, log)
	paymentService := procureapp.NewPaymentService(paymentRepo, log)

	receiptService.SetTaskService(taskService)
	receiptService.SetAuditSink(auditSink)
	receiptService.SetIdempotencyStore(idempotencyStore)
	matchService.SetAuditSink(auditSink)
	matchService.SetIdempotencyStore(idempotencyStore)
	paymentService.SetAuditSink(auditSink)
	paymentService.SetIdempotencyStore(idempotencyStore)

	matchService.SetFallbackTolerances(fallbackTolerances(cfg.Matching))

	tel, err := newTelemetryStack(context.Background(), cfg, log, db)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer tel.Close(log)
	if tel.Business != nil {
		receiptService.SetBusinessMetrics(tel.Business)
		matchService.SetBusinessMetrics(tel.Business)
		paymentService.SetBusinessMetrics(tel.Business)
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// Token revocation checks go to the same Redis as idempotency; the
	// in-memory blacklist only holds revocations for this one instance.
	var tokenBlacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Error closing token blacklist", zap.Error(err))
			}
		}()
	}

	eventBus := event.NewInMemoryEventBus(log)

	// A match that completes requiring approval raises a review task for
	// the order owner.
	matchReviewHandler := procureapp.NewMatchReviewHandler(matchRepo, orderRepo, taskService, log)
	eventBus.Subscribe(matchReviewHandler)
	log.Info("Event handlers registered",
		zap.Strings("match_review_events", matchReviewHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// The outbox processor drains outbox_entries onto the event bus for
	// guaranteed delivery.
	if cfg.Event.ProcessorEnabled {
		processorConfig := outboxProcessorConfig(cfg.Event)
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	applyMiddleware(engine, cfg, log, tel.APIMeter)

	engine.GET("/health", healthHandler(db))

	// Swagger endpoint, protected per config by auth and/or IP allowlist.
	if cfg.Swagger.Enabled {
		swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddleware(jwtService))
		engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}))

	mountProcurementRoutes(r, receiptService, matchService, billService, paymentService)
	mountSystemRoutes(r, eventapp.NewOutboxService(outboxRepo, log))
	r.Setup()

	// bare ping outside the authenticated surface
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	awaitShutdown(srv, log)
}

// initLogger builds the zap logger and, when telemetry is on, tees it to
// the OTLP collector. The returned cleanup flushes and shuts everything
// down.
func initLogger(cfg *config.Config) (*zap.Logger, func()) {
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	cleanup := func() { _ = logger.Sync(log) }
	if !cfg.Telemetry.Enabled {
		return log, cleanup
	}

	logProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           true,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logger provider", zap.Error(err))
	}

	otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: logProvider,
		Level:          zapcore.InfoLevel,
	})
	bridged := telemetry.NewBridgedLogger(log.Core(), otelCore)

	return bridged, func() {
		_ = logger.Sync(bridged)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := logProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}
}

// fallbackTolerances maps the deployment-wide matching config onto a
// tolerance policy used for tenants without an active configuration.
func fallbackTolerances(m config.MatchingConfig) *procurement.ToleranceConfig {
	tc := procurement.DefaultToleranceConfig(uuid.Nil)
	tc.Name = "Deployment default"
	tc.QuantityTolerancePercent = decimal.NewFromFloat(m.QuantityTolerancePercent)
	tc.PriceTolerancePercent = decimal.NewFromFloat(m.PriceTolerancePercent)
	tc.AmountTolerancePercent = decimal.NewFromFloat(m.AmountTolerancePercent)
	tc.AmountToleranceAbsolute = decimal.NewFromFloat(m.AmountToleranceAbsolute)
	tc.AmountMode = procurement.AmountToleranceMode(m.AmountMode)
	tc.AutoApprove = m.AutoApprove
	tc.AutoApproveCeiling = decimal.NewFromFloat(m.AutoApproveCeiling)
	return tc
}

// telemetryStack bundles the OTEL providers so their shutdown order stays
// in one place.
type telemetryStack struct {
	APIMeter metric.Meter
	Tracer   *telemetry.TracerProvider
	Business *telemetry.BusinessMetrics

	shutdowns []func(log *zap.Logger)
}

func (s *telemetryStack) Close(log *zap.Logger) {
	for i := len(s.shutdowns) - 1; i >= 0; i-- {
		s.shutdowns[i](log)
	}
}

// newTelemetryStack wires metrics, tracing, database tracing, business
// metrics, and the continuous profiler according to config. All of it is
// optional; a disabled config yields an empty stack.
func newTelemetryStack(ctx context.Context, cfg *config.Config, log *zap.Logger, db *persistence.Database) (*telemetryStack, error) {
	stack := &telemetryStack{}

	if cfg.Telemetry.Enabled {
		meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			return nil, err
		}
		stack.shutdowns = append(stack.shutdowns, func(log *zap.Logger) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(ctx); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		})

		stack.Tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			return nil, err
		}
		tracerProvider := stack.Tracer
		stack.shutdowns = append(stack.shutdowns, func(log *zap.Logger) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(ctx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		})

		if cfg.Telemetry.DBTraceEnabled {
			dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:          true,
				LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
				SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
				DBSystem:         "postgresql",
				WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
			}, log)
			if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
				log.Error("Failed to register database tracing", zap.Error(err))
			}
		}

		stack.APIMeter = meterProvider.Meter("procureflow/http")

		stack.Business, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:            meterProvider.Meter("procureflow/procurement"),
			Logger:           log,
			MatchingProvider: telemetry.NewGormMatchingMetricsProvider(db.DB),
		})
		if err != nil {
			return nil, err
		}
		business := stack.Business
		stack.shutdowns = append(stack.shutdowns, func(*zap.Logger) { business.Stop() })
		business.StartPeriodicCollection(ctx, telemetry.NewGormTenantProvider(db.DB), 5*time.Minute)

		log.Info("Telemetry enabled",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.Telemetry.SamplingRatio),
		)
	}

	if cfg.Telemetry.ProfilerEnabled {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:           true,
			ServerAddress:     cfg.Telemetry.ProfilerServerAddress,
			ApplicationName:   cfg.Telemetry.ServiceName,
			ProfileCPU:        true,
			ProfileAllocSpace: true,
			ProfileInuseSpace: true,
			ProfileGoroutines: true,
		}, log)
		if err != nil {
			log.Error("Failed to start continuous profiler", zap.Error(err))
		} else {
			stack.shutdowns = append(stack.shutdowns, func(log *zap.Logger) {
				if err := profiler.Stop(); err != nil {
					log.Error("Error stopping profiler", zap.Error(err))
				}
			})

			// Span profiles link traces to CPU profiles; the profiler
			// must already be running.
			if stack.Tracer != nil {
				if err := stack.Tracer.EnableSpanProfiles(); err != nil {
					log.Error("Failed to enable span profiles", zap.Error(err))
				}
			}
		}
	}

	return stack, nil
}

// applyMiddleware installs the request pipeline. Order matters: the
// request ID must exist before logging, recovery must wrap everything
// after it, and rate limiting runs last so rejected requests still log.
func applyMiddleware(engine *gin.Engine, cfg *config.Config, log *zap.Logger, apiMeter metric.Meter) {
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetricsWithMeter(apiMeter, true))
	}

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
}

// mountProcurementRoutes registers the procurement API. Mutating
// operations require an explicit permission grant; reads only need a
// valid token.
func mountProcurementRoutes(r *router.Router, receiptService *procureapp.ReceiptService, matchService *procureapp.MatchService, billService *procureapp.BillService, paymentService *procureapp.PaymentService) {
	receiptHandler := handler.NewGoodsReceiptHandler(receiptService)
	matchHandler := handler.NewThreeWayMatchHandler(matchService)
	billHandler := handler.NewVendorBillHandler(billService)
	paymentHandler := handler.NewVendorPaymentHandler(paymentService)

	manage := middleware.RequirePermission("procurement:manage")

	g := router.NewDomainGroup("procurement", "/procurement")
	g.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "procurement service ready"})
	})

	// goods receipt lifecycle
	g.POST("/receipts", manage, receiptHandler.Create)
	g.GET("/receipts", receiptHandler.List)
	g.GET("/receipts/:id", receiptHandler.GetByID)
	g.POST("/receipts/:id/complete", manage, receiptHandler.Complete)
	g.POST("/receipts/:id/bill", manage, receiptHandler.CreateBill)
	g.POST("/receipts/:id/approve-payment", manage, receiptHandler.ApproveForPayment)

	// three-way matching
	g.POST("/matches", manage, matchHandler.Run)
	g.GET("/matches", matchHandler.List)
	g.GET("/matches/:id", matchHandler.GetByID)
	g.POST("/matches/:id/approve", manage, matchHandler.Approve)
	g.POST("/matches/:id/reject", manage, matchHandler.Reject)

	// vendor bills and their journals
	g.GET("/bills", billHandler.List)
	g.GET("/bills/:id", billHandler.GetByID)
	g.GET("/bills/:id/journal", billHandler.GetJournal)
	g.GET("/bills/:id/payments", paymentHandler.ListForBill)

	// vendor payments
	g.GET("/payments", paymentHandler.List)
	g.GET("/payments/:id", paymentHandler.GetByID)
	g.POST("/payments/:id/complete", manage, paymentHandler.Complete)
	g.POST("/payments/:id/cancel", manage, paymentHandler.Cancel)

	r.Register(g)
}

// mountSystemRoutes registers system info plus outbox administration for
// inspecting and replaying dead-lettered events.
func mountSystemRoutes(r *router.Router, outboxService *eventapp.OutboxService) {
	systemHandler := handler.NewSystemHandler()
	outboxHandler := handler.NewOutboxHandler(outboxService)
	manage := middleware.RequirePermission("procurement:manage")

	g := router.NewDomainGroup("system", "/system")
	g.GET("/info", systemHandler.GetSystemInfo)
	g.GET("/ping", systemHandler.Ping)

	g.GET("/outbox/stats", manage, outboxHandler.Stats)
	g.GET("/outbox/dead", manage, outboxHandler.ListDeadLetters)
	g.POST("/outbox/dead/retry-all", manage, outboxHandler.RequeueAll)
	g.GET("/outbox/:id", manage, outboxHandler.GetByID)
	g.POST("/outbox/:id/retry", manage, outboxHandler.Requeue)

	r.Register(g)
}

// outboxProcessorConfig overlays the event config onto processor defaults.
func outboxProcessorConfig(e config.EventConfig) event.OutboxProcessorConfig {
	pc := event.DefaultOutboxProcessorConfig()
	if e.BatchSize > 0 {
		pc.BatchSize = e.BatchSize
	}
	if e.PollInterval > 0 {
		pc.PollInterval = e.PollInterval
	}
	pc.CleanupEnabled = e.CleanupEnabled
	if e.CleanupRetention > 0 {
		pc.CleanupRetention = e.CleanupRetention
	}
	return pc
}

// awaitShutdown blocks until SIGINT or SIGTERM, then drains the server.
func awaitShutdown(srv *http.Server, log *zap.Logger) {
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

func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
