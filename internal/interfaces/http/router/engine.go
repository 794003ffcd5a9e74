package router

import (
	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/application/event"
	"github.com/shopdesk/backoffice/internal/infrastructure/auth"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/interfaces/http/handler"
	"github.com/shopdesk/backoffice/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dependencies are the services the HTTP layer is built from. Meter and
// TracerProvider may be nil when telemetry is disabled; Outbox may be nil when
// the outbox admin endpoints are not wanted.
type Dependencies struct {
	Config          *config.Config
	Logger          *zap.Logger
	JWTService      *auth.JWTService
	Blacklist       auth.TokenBlacklist
	Products        handler.ProductCatalog
	Outbox          *event.OutboxService
	ReadinessChecks []handler.HealthCheck
	Meter           metric.Meter
	TracerProvider  trace.TracerProvider
	Version         string
}

// NewEngine builds the gin engine with the full middleware chain and every route
func NewEngine(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.Env == "production"

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			Provider:    deps.TracerProvider,
		}),
		middleware.HTTPMetrics(deps.Meter, log),
		middleware.SecureWithConfig(security),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)

	systemHandler := handler.NewSystemHandler(deps.Version, deps.ReadinessChecks...)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	jwtCfg := middleware.DefaultJWTConfig(deps.JWTService)
	jwtCfg.TokenBlacklist = deps.Blacklist
	jwtCfg.Logger = log

	api := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.SpanEnricher(),
		middleware.RequireRole(cfg.JWT.AdminRole),
	}

	products := handler.NewProductHandler(deps.Products)
	authHandler := handler.NewAuthHandler(deps.Blacklist)
	system := NewResource("/system").GET("/info", systemHandler.GetSystemInfo)
	if deps.Outbox != nil {
		outbox := handler.NewOutboxHandler(deps.Outbox)
		system.Nest(NewResource("/outbox").
			GET("/stats", outbox.Stats).
			GET("/dead", outbox.ListDead).
			POST("/dead/:id/retry", outbox.RetryDead))
	}

	Mount(engine, "v1", api,
		NewResource("/products").
			POST("", products.Create).
			GET("", products.List).
			GET("/:id", products.Get).
			PUT("/:id", products.Update).
			DELETE("/:id", products.Delete).
			PUT("/:id/options", products.SyncOptions).
			GET("/:id/options", products.GetOptions).
			POST("/:id/media/upload-url", products.RequestMediaUpload),
		NewResource("/options").
			GET("/:id", products.GetOption).
			PUT("/:id", products.UpdateOption).
			DELETE("/:id", products.DeleteOption),
		NewResource("/auth").
			POST("/logout", authHandler.Logout).
			GET("/me", authHandler.Me),
		system,
	)
	return engine, nil
}
