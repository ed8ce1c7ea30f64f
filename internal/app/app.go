// Package app assembles the lesson engine and its infrastructure for the server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/repository"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/cache"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/database"
	"github.com/noah-isme/lesson-planner-api/pkg/jobs"
)

const cacheNamespace = "lessons"

// App holds the wired services. Close releases everything it opened.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Validator *validator.Validate

	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Engine       *service.LessonEngine
	Schedules    *service.ScheduleService
	Occurrences  *service.OccurrenceService
	Calendar     *service.CalendarService
	Cancellation *service.CancellationService
	Export       *service.ExportService
	Tokens       *service.TokenService
	Trigger      *service.GenerationTrigger
	SyncWorker   *service.ScheduleSyncWorker

	redis *redis.Client
}

// New opens the database and Redis, applies the schema and wires every service.
// Background workers are started with ctx as their parent.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// The agenda cache is optional; run without it.
		logger.Warn("redis unavailable, agenda cache disabled", zap.Error(err))
		redisClient = nil
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Validator: validator.New(), redis: redisClient}
	a.wire(ctx, redisClient)
	return a, nil
}

func (a *App) wire(ctx context.Context, redisClient *redis.Client) {
	cfg := a.Config
	logger := a.Logger
	loc := cfg.Lessons.Location()

	occurrenceRepo := repository.NewOccurrenceRepository(a.DB)
	definitionRepo := repository.NewScheduleDefinitionRepository(a.DB)

	a.Metrics = service.NewMetricsService()
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cacheNamespace, logger.Named("cache"))
	}
	a.Cache = service.NewCacheService(cacheRepo, a.Metrics, cfg.Cache.AgendaTTL, logger.Named("cache"), cfg.Cache.Enabled && cacheRepo != nil)

	generator := service.NewScheduleGeneratorService(occurrenceRepo, a.Cache, a.Metrics, logger.Named("generator"), service.ScheduleGeneratorConfig{
		Location:  loc,
		Lookahead: cfg.Lessons.Lookahead(),
	})
	homework := service.NewHomeworkService(occurrenceRepo, a.Cache, a.Metrics, logger.Named("homework"))
	a.Cancellation = service.NewCancellationService(occurrenceRepo, definitionRepo, a.Cache, a.Metrics, logger.Named("cancellation"), service.CancellationConfig{
		PendingTTL: cfg.Lessons.PendingCancelTTL,
	})
	a.Engine = service.NewLessonEngine(definitionRepo, generator, homework, a.Cancellation, logger)

	a.Trigger = service.NewGenerationTrigger(ctx, a.Engine.EnsureAllInRange, a.Metrics, logger.Named("trigger"), service.GenerationTriggerConfig{
		Debounce: cfg.Lessons.DebounceInterval,
	})

	a.SyncWorker = service.NewScheduleSyncWorker(jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
	}, logger.Named("sync"))
	a.Schedules = service.NewScheduleService(definitionRepo, generator, a.SyncWorker, a.Validator, logger.Named("schedules"))
	a.SyncWorker.Bind(a.Schedules)
	a.SyncWorker.Start(ctx)

	a.Occurrences = service.NewOccurrenceService(occurrenceRepo, homework, a.Cache, logger.Named("occurrences"))
	a.Calendar = service.NewCalendarService(occurrenceRepo, a.Trigger, a.Cache, logger.Named("calendar"), service.CalendarConfig{
		Location:  loc,
		Lookahead: cfg.Lessons.Lookahead(),
		AgendaTTL: cfg.Cache.AgendaTTL,
	})
	a.Export = service.NewExportService(a.Calendar, nil, nil, logger.Named("export"))
	a.Tokens = service.NewTokenService(service.TokenConfig{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		Expiration: cfg.Auth.Expiration,
	})
}

// Close stops background work and closes connections.
func (a *App) Close() {
	if a.Trigger != nil {
		a.Trigger.Stop()
	}
	if a.SyncWorker != nil {
		a.SyncWorker.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("close database", zap.Error(err))
		}
	}
}
