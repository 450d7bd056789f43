package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	idemapp "github.com/tesoreria/backend/internal/application/idempotency"
	treasuryapp "github.com/tesoreria/backend/internal/application/treasury"
	"github.com/tesoreria/backend/internal/domain/idempotency"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"github.com/tesoreria/backend/internal/infrastructure/cache"
	"github.com/tesoreria/backend/internal/infrastructure/config"
	"github.com/tesoreria/backend/internal/infrastructure/event"
	"github.com/tesoreria/backend/internal/infrastructure/logger"
	"github.com/tesoreria/backend/internal/infrastructure/persistence"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"github.com/tesoreria/backend/internal/interfaces/http/handler"
	"github.com/tesoreria/backend/internal/interfaces/http/middleware"
	"github.com/tesoreria/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const appVersion = "1.0.0"

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

	log.Info("Starting Tesorería Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
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

	// Initialize database connection with zap-backed GORM logging
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.Connect(&cfg.Database, log, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	chequeRepo := persistence.NewGormChequeRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	depositRepo := persistence.NewGormDepositRepository(db.DB)
	closingRepo := persistence.NewGormClosingRepository(db.DB)
	bankMovementRepo := persistence.NewGormBankMovementRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	patternRepo := persistence.NewGormPatternRepository(db.DB)
	idempotencyRepo := persistence.NewGormIdempotencyRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// In-flight gate: redis when available, in-process otherwise. The gate
	// is a fast pre-check; the durable record still serializes duplicates
	// when the gate is degraded.
	var gate idempotency.InFlightGate
	if cfg.Redis.Enabled {
		redisGate, err := cache.NewRedisInFlightGate(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Idempotency.GateTTL, log)
		if err != nil {
			log.Warn("Redis unavailable, falling back to in-process gate", zap.Error(err))
			gate = cache.NewInMemoryInFlightGate(cfg.Idempotency.GateTTL)
		} else {
			defer func() {
				if err := redisGate.Close(); err != nil {
					log.Error("Error closing redis gate", zap.Error(err))
				}
			}()
			gate = redisGate
			log.Info("Redis in-flight gate connected")
		}
	} else {
		gate = cache.NewInMemoryInFlightGate(cfg.Idempotency.GateTTL)
	}

	// Idempotency runner shared by every protected write operation
	runner := idemapp.NewRunner(idempotencyRepo, gate, log,
		idemapp.WithStaleness(cfg.Idempotency.Staleness))

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Matcher constants come from configuration so operators can re-tune
	// scoring per deployment without a rebuild
	matcherCfg := treasury.DefaultMatcherConfig()
	matcherCfg.AmountTolerance = decimal.NewFromFloat(cfg.Reconciliation.AmountTolerance)
	matcherCfg.DateWindowDays = cfg.Reconciliation.DateWindowDays
	matcherCfg.AmountWeight = decimal.NewFromFloat(cfg.Reconciliation.AmountWeight)
	matcherCfg.DateWeight = decimal.NewFromFloat(cfg.Reconciliation.DateWeight)
	matcherCfg.TextWeight = decimal.NewFromFloat(cfg.Reconciliation.TextWeight)
	matcherCfg.PatternBoost = decimal.NewFromFloat(cfg.Reconciliation.PatternBoost)
	matcherCfg.HighThreshold = decimal.NewFromFloat(cfg.Reconciliation.HighThreshold)
	matcherCfg.MediumThreshold = decimal.NewFromFloat(cfg.Reconciliation.MediumThreshold)
	matcherCfg.MinScore = decimal.NewFromFloat(cfg.Reconciliation.MinScore)

	// Initialize application services
	chequeService := treasuryapp.NewChequeService(chequeRepo, depositRepo, txScope, log,
		treasuryapp.WithChequeEventPublisher(eventBus))
	depositService := treasuryapp.NewDepositService(depositRepo, txScope, log,
		treasuryapp.WithDepositEventPublisher(eventBus))
	closingService := treasuryapp.NewClosingService(closingRepo, movementRepo, chequeRepo, log,
		treasuryapp.WithClosingEventPublisher(eventBus))
	reconciliationService := treasuryapp.NewReconciliationService(
		bankMovementRepo, paymentRepo, patternRepo, txScope, log,
		treasuryapp.WithMatcherConfig(matcherCfg),
		treasuryapp.WithReconciliationEventPublisher(eventBus))

	// Initialize handlers
	chequeHandler := handler.NewChequeHandler(chequeService, runner)
	depositHandler := handler.NewDepositHandler(depositService, runner)
	closingHandler := handler.NewClosingHandler(closingService, runner)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService, runner)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, appVersion)

	// Periodically purge closed idempotency records past retention
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go runIdempotencyJanitor(janitorCtx, idempotencyRepo, cfg.Idempotency.RetentionDays, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	middleware.SetupValidator()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, in order: request ID, panic recovery, request
	// logging, security headers, CORS, tenant resolution on the API group
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health check endpoint (outside API versioning and tenant resolution)
	engine.GET("/health", healthHandler(db))

	// API routes require a resolved tenant
	engine.Use(middleware.Principal())

	r := router.New(engine, "v1")
	r.Register(chequeHandler, depositHandler, closingHandler, reconciliationHandler, systemHandler)
	r.Setup()

	// Create HTTP server with config
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
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["db_pool"] = gin.H{
				"open":   stats.OpenConnections,
				"in_use": stats.InUse,
				"idle":   stats.Idle,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

// runIdempotencyJanitor deletes closed idempotency records past the
// retention window once per hour until the context is cancelled.
func runIdempotencyJanitor(ctx context.Context, repo idempotency.Repository, retentionDays int, log *zap.Logger) {
	if retentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteOlderThan(ctx, retentionDays)
			if err != nil {
				log.Error("Idempotency record cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				log.Info("Purged expired idempotency records", zap.Int64("deleted", deleted))
			}
		}
	}
}
