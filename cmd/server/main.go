package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/shopdesk/backoffice/internal/application/catalog"
	eventapp "github.com/shopdesk/backoffice/internal/application/event"
	"github.com/shopdesk/backoffice/internal/infrastructure/auth"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/shopdesk/backoffice/internal/infrastructure/event"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence"
	"github.com/shopdesk/backoffice/internal/infrastructure/storage"
	"github.com/shopdesk/backoffice/internal/infrastructure/telemetry"
	"github.com/shopdesk/backoffice/internal/interfaces/http/handler"
	"github.com/shopdesk/backoffice/internal/interfaces/http/router"
	"github.com/shopdesk/backoffice/migrations"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Back Office Catalog API
//	@version		1.0
//	@description	Product catalog administration: products, option trees, variants and media.

//	@BasePath	/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Telemetry
	providers, err := telemetry.Setup(rootCtx, telemetry.OptionsFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = providers.BridgeLogger(log, logger.ParseLevel(cfg.Log.Level))
	httpMeter := providers.Meter("backoffice.http")
	catalogMeter := providers.Meter("backoffice.catalog")

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	schema, err := db.Migrate(migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Schema up to date", zap.Uint("version", schema.Version))

	dbInstrumentation := telemetry.DefaultDBConfig()
	dbInstrumentation.TraceEnabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbInstrumentation.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbInstrumentation.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	}
	if err := telemetry.RegisterDBTracing(db.DB, dbInstrumentation, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(rootCtx, db.DB, providers.Meter("db.client"), dbInstrumentation, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Events: catalog writes append to the outbox inside their transaction,
	// the processor relays committed entries to the in-memory bus.
	serializer := event.NewEventSerializer()
	event.RegisterCatalogEvents(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	eventBus := event.NewInMemoryEventBus(log)

	catalogEvents := catalogapp.NewCatalogEventHandler(log)
	eventBus.Subscribe(catalogEvents, catalogEvents.EventTypes()...)
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer,
			event.OutboxProcessorConfigFrom(cfg.Event), log)
		if err := processor.Start(rootCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	// Catalog
	scope := persistence.NewGormTransactionScope(db.DB, event.NewOutboxPublisher(serializer))
	productService := catalogapp.NewProductService(scope, log)
	if catalogMeter != nil {
		catalogMetrics, err := telemetry.NewCatalogMetrics(catalogMeter)
		if err != nil {
			log.Warn("Catalog metrics disabled", zap.Error(err))
		} else {
			productService.SetMetrics(catalogMetrics)
		}
	}

	uploadCfg := catalogapp.DefaultMediaUploadConfig()
	if cfg.Storage.PresignExpiration > 0 {
		uploadCfg.UploadURLExpiry = cfg.Storage.PresignExpiration
	}
	if cfg.Storage.MaxFileSize > 0 {
		uploadCfg.MaxFileSize = cfg.Storage.MaxFileSize
	}
	switch {
	case cfg.Storage.Enabled:
		mediaStore, err := storage.NewS3MediaStore(cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize media storage", zap.Error(err))
		}
		ensureCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := mediaStore.EnsureBucket(ensureCtx); err != nil {
			log.Warn("Media bucket check failed", zap.Error(err))
		}
		cancel()
		productService.SetMediaUploader(catalogapp.NewMediaUploader(mediaStore, uploadCfg, log))
	case cfg.App.Env != "production":
		log.Warn("Media storage not configured, using stub upload URLs")
		productService.SetMediaUploader(catalogapp.NewMediaUploader(storage.NewStubMediaStore(), uploadCfg, log))
	default:
		log.Warn("Media storage not configured, upload URLs are unavailable")
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	readiness := []handler.HealthCheck{{Name: "database", Check: db.Ping}}

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := auth.NewRedisClient(rootCtx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		redisBlacklist := auth.NewRedisTokenBlacklist(redisClient)
		blacklist = redisBlacklist
		readiness = append(readiness, handler.HealthCheck{Name: "redis", Check: redisBlacklist.Ping})
	} else {
		log.Warn("Redis disabled, revoked tokens are kept in memory")
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	engine, err := router.NewEngine(router.Dependencies{
		Config:          cfg,
		Logger:          log,
		JWTService:      jwtService,
		Blacklist:       blacklist,
		Products:        productService,
		Outbox:          eventapp.NewOutboxService(outboxRepo, log),
		ReadinessChecks: readiness,
		Meter:           httpMeter,
		Version:         version,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if processor != nil {
		if err := processor.Stop(ctx); err != nil {
			log.Error("Outbox processor did not stop cleanly", zap.Error(err))
		}
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Event bus did not stop cleanly", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	stopBackground()

	if err := providers.Shutdown(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
