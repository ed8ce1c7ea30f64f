package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/app"
	"github.com/noah-isme/lesson-planner-api/internal/handler"
	"github.com/noah-isme/lesson-planner-api/internal/middleware"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/requestid"
)

func newRouter(a *app.App, logr *zap.Logger) *gin.Engine {
	cfg := a.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	metricsHandler := handler.NewMetricsHandler(a.Metrics, a.DB)
	scheduleHandler := handler.NewScheduleHandler(a.Schedules, a.Validator)
	calendarHandler := handler.NewCalendarHandler(a.Calendar, a.Export, a.Validator)
	occurrenceHandler := handler.NewOccurrenceHandler(a.Occurrences, a.Validator)
	cancellationHandler := handler.NewCancellationHandler(a.Engine, a.Validator)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Auth.Enabled {
		api.Use(middleware.JWT(a.Tokens))
	}

	api.GET("/metrics/summary", metricsHandler.Snapshot)

	schedules := api.Group("/schedules")
	schedules.POST("", scheduleHandler.Create)
	schedules.GET("", scheduleHandler.List)
	schedules.GET("/:id", scheduleHandler.Get)
	schedules.PUT("/:id/template", scheduleHandler.UpdateTemplate)

	calendar := api.Group("/calendar")
	calendar.GET("", calendarHandler.Window)
	calendar.GET("/days/:date", calendarHandler.Day)
	calendar.GET("/days/:date/export", calendarHandler.Export)

	occurrences := api.Group("/occurrences")
	occurrences.GET("/:id", occurrenceHandler.Get)
	occurrences.PATCH("/:id/schedule", occurrenceHandler.Reschedule)
	occurrences.PUT("/:id/assignments", occurrenceHandler.SetAssignments)
	occurrences.PATCH("/:id/checks", occurrenceHandler.ToggleCheck)
	occurrences.POST("/:id/cancel", cancellationHandler.Cancel)

	makeups := api.Group("/makeups")
	makeups.POST("/:token", cancellationHandler.PlaceMakeup)
	makeups.DELETE("/:token", cancellationHandler.AbandonMakeup)

	return r
}
