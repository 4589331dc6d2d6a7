package router

import (
	"fmt"

	"github.com/erp/labelstation/internal/infrastructure/logger"
	"github.com/erp/labelstation/internal/interfaces/http/handler"
	"github.com/erp/labelstation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers bundles the station's HTTP handlers
type Handlers struct {
	Session        *handler.SessionHandler
	Receiving      *handler.ReceivingHandler
	Label          *handler.LabelHandler
	Batch          *handler.BatchHandler
	Reconciliation *handler.ReconciliationHandler
	System         *handler.SystemHandler
}

// EngineConfig configures the middleware chain of the station engine
type EngineConfig struct {
	Logger         *zap.Logger
	Meter          metric.Meter
	Tracing        middleware.TracingConfig
	CORS           middleware.CORSConfig
	MaxBodyBytes   int64
	TrustedProxies []string
	// LoginLimiter throttles login attempts per client IP; nil disables it
	LoginLimiter *middleware.RateLimiter
	Session      middleware.SessionState
}

// NewEngine builds the gin engine: global middleware, /health, and the
// versioned API where everything but login requires an operator session
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.CORSWithConfig(cfg.CORS),
	)
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	engine.GET("/health", h.System.Health)

	r := NewRouter(engine)
	r.Register(StationRoutes(cfg, h)...)
	r.Setup()
	return engine, nil
}

// StationRoutes returns the API route groups
func StationRoutes(cfg EngineConfig, h Handlers) []RouteRegistrar {
	guard := []gin.HandlerFunc{
		middleware.RequireSession(cfg.Session),
		middleware.TracingAttributeInjector(),
	}
	guarded := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guard...), handlers...)
	}

	login := []gin.HandlerFunc{h.Session.Login}
	if cfg.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(cfg.LoginLimiter)}, login...)
	}

	session := NewDomainGroup("session", "/session").
		POST("/login", login...).
		POST("/logout", guarded(h.Session.Logout)...).
		GET("", guarded(h.Session.Current)...)

	station := NewDomainGroup("station", "").Use(guard...)
	station.Group("receiving", "/purchase-orders").
		GET("", h.Receiving.ListPurchaseOrders).
		GET("/:po/items", h.Receiving.ListLineItems)
	station.Group("warehouses", "/warehouses").
		GET("", h.Receiving.ListWarehouses)
	station.Group("labels", "/labels").
		POST("/preview", h.Label.Preview).
		GET("/defaults", h.Label.Defaults)
	station.Group("printer", "/printer").
		GET("/status", h.Label.PrinterStatus)
	station.Group("batches", "/batches").
		POST("", h.Batch.Submit).
		GET("/:id", h.Batch.Get).
		GET("/:id/events", h.Batch.Events)
	station.Group("reconciliation", "/reconciliation").
		GET("", h.Reconciliation.List).
		POST("/:id/retry", h.Reconciliation.Retry)
	station.Group("notices", "/notices").
		GET("", h.Reconciliation.Notices)

	return []RouteRegistrar{session, station}
}
