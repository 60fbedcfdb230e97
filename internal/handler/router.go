package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/schedule-browser/internal/middleware"
	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/config"
	"github.com/noah-isme/schedule-browser/pkg/logger"
	corsmiddleware "github.com/noah-isme/schedule-browser/pkg/middleware/cors"
	"github.com/noah-isme/schedule-browser/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/schedule-browser/pkg/middleware/requestid"
)

// RouterConfig selects optional routes.
type RouterConfig struct {
	AllowedOrigins []string
	EnableDocs     bool
	EnableExport   bool
	RateLimit      config.RateLimitConfig
}

// Handlers groups the handlers mounted by NewRouter. Nil entries are skipped.
type Handlers struct {
	Schedules *ScheduleHandler
	Filters   *FilterHandler
	Dialogs   *DialogHandler
	Exports   *ExportHandler
	Session   *SessionHandler
	Metrics   *MetricsHandler
	Stream    *StreamHub
}

// NewRouter builds the local API engine.
func NewRouter(cfg RouterConfig, h Handlers, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(ratelimit.New(cfg.RateLimit, "/health", "/ready", "/metrics", "/stream"))
	r.Use(internalmiddleware.Metrics(metrics))

	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
		r.GET("/metrics/summary", h.Metrics.Summary)
	}

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if h.Schedules != nil {
		schedules := r.Group("/schedules")
		schedules.GET("", h.Schedules.List)
		schedules.POST("/retry", h.Schedules.Retry)
		schedules.POST("/page/next", h.Schedules.NextPage)
		schedules.POST("/page/prev", h.Schedules.PrevPage)
		schedules.PUT("/page", h.Schedules.GoToPage)
		if cfg.EnableExport && h.Exports != nil {
			schedules.GET("/export", h.Exports.Download)
		}
	}

	if h.Filters != nil {
		filters := r.Group("/filters")
		filters.GET("", h.Filters.Get)
		filters.PUT("/draft", h.Filters.SetDraft)
		filters.PUT("/search", h.Filters.SetSearch)
		filters.POST("/apply", h.Filters.Apply)
		filters.POST("/clear", h.Filters.Clear)
		filters.PUT("/sort", h.Filters.SetSort)
		filters.POST("/sort/toggle", h.Filters.ToggleSort)
	}

	if h.Dialogs != nil {
		dialogs := r.Group("/dialogs")
		dialogs.POST("", h.Dialogs.Open)
		dialogs.GET("/:id", h.Dialogs.Get)
		dialogs.DELETE("/:id", h.Dialogs.Close)
		dialogs.POST("/:id/apply", h.Dialogs.Apply)
		dialogs.PUT("/:id/teachers/search", h.Dialogs.SearchTeachers)
		dialogs.PUT("/:id/classes/search", h.Dialogs.SearchClasses)
		dialogs.POST("/:id/teachers/refresh", h.Dialogs.RefreshTeachers)
		dialogs.POST("/:id/classes/refresh", h.Dialogs.RefreshClasses)
	}

	if h.Session != nil {
		r.GET("/session", h.Session.Get)
	}

	if h.Stream != nil {
		r.GET("/stream", h.Stream.Serve)
	}

	return r
}
