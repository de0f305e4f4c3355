package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/server"
	"task-tracker/backend/internal/services"
	"task-tracker/backend/internal/worker"
)

const maintenanceQueue = "maintenance"

// App owns the process-wide resources. Build it once per command and Close
// it on exit.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *database.DatabasePool
	Redis   *redis.Client
	Cache   *cache.MultiLevelCache
	Users   *repositories.GormUserStore
	Auth    *services.AuthService
	Tasks   *services.CachedTaskService
	Monitor *monitoring.Monitor
}

func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	gormLevel := gormlogger.Warn
	if logging.ParseLevel(cfg.Log.Level) <= zerolog.DebugLevel {
		gormLevel = gormlogger.Info
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Logger:          logging.NewGormLogger(logger, gormLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Monitor: monitoring.New(),
	}

	// Without redis the cache still runs its in-process level.
	var l2 cache.Cache
	if cfg.Redis.Enabled {
		a.Redis = cache.NewRedisClient(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		l2 = cache.NewRedisCacheFromClient(a.Redis, cache.DefaultCacheConfig().KeyPrefix)
		logger.Info().Str("addr", cfg.GetRedisAddr()).Msg("redis cache enabled")
	}
	a.Cache = cache.NewMultiLevelCache(l2, cache.DefaultMultiLevelConfig(), logger)

	db := pool.DB
	a.Users = repositories.NewUserStore(db)
	a.Auth = services.NewAuthService(a.Users, repositories.NewTokenStore(db), cfg.Auth, logger)
	a.Tasks = services.NewCachedTaskService(
		services.NewTaskService(repositories.NewTaskStore(db), logger),
		a.Cache,
		cfg.Redis.TaskListTTL,
		logger,
	)

	a.Monitor.RegisterHealthCheck("database", true, pool.Health)
	a.Monitor.RegisterHealthCheck("cache", false, a.Cache.Health)
	a.Monitor.RegisterStats("database", pool.Stats)
	a.Monitor.RegisterStats("cache", a.Tasks.GetCacheStats)

	return a, nil
}

func (a *App) Migrate() error {
	return a.Pool.Migrate()
}

// UserIDByEmail resolves the account a CLI command acts on.
func (a *App) UserIDByEmail(ctx context.Context, email string) (uint, error) {
	user, err := a.Users.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, fmt.Errorf("%w: %s", services.ErrUserNotFound, email)
	}
	return user.ID, nil
}

// Serve runs the HTTP server and background jobs until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wait := a.startBackground(ctx)
	defer wait()

	srv := server.New(a.Config, server.Dependencies{
		Auth:        a.Auth,
		Tasks:       a.Tasks,
		Invalidator: a.Tasks,
		Monitor:     a.Monitor,
	}, a.Logger)
	return srv.Run(ctx)
}

// startBackground schedules the refresh-token purge. With redis it goes
// through the job queue so any instance's worker can run it; otherwise it
// runs in process. The returned func waits for everything to stop.
func (a *App) startBackground(ctx context.Context) func() {
	cfg := a.Config.Worker
	if !cfg.Enabled {
		return func() {}
	}

	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if !slices.Contains(cfg.Queues, maintenanceQueue) {
		cfg.Queues = append(slices.Clone(cfg.Queues), maintenanceQueue)
	}

	var wg sync.WaitGroup
	logger := a.Logger.With().Str("component", "scheduler").Logger()

	if a.Redis == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Every(ctx, cfg.CleanupInterval, logger, func(ctx context.Context) error {
				_, err := a.Auth.PurgeExpiredTokens(ctx)
				return err
			})
		}()
		return wg.Wait
	}

	queue := worker.NewJobQueue(a.Redis, worker.DefaultKeyPrefix)
	w := worker.NewWorker(worker.WorkerConfig{
		Queue:        queue,
		PollInterval: cfg.PollInterval,
		Queues:       cfg.Queues,
	}, a.Logger)
	w.RegisterHandler(worker.JobTypeTokenCleanup, worker.TokenCleanupHandler(a.Auth, a.Logger))
	w.Start(ctx, cfg.Concurrency)

	a.Monitor.RegisterStats("jobs", func() map[string]interface{} {
		return queue.Stats(context.Background(), cfg.Queues...)
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Every(ctx, cfg.CleanupInterval, logger, func(ctx context.Context) error {
			_, err := queue.Enqueue(ctx, maintenanceQueue, worker.JobTypeTokenCleanup, nil)
			return err
		})
	}()

	return func() {
		wg.Wait()
		w.Wait()
	}
}

// Close releases the cache (and with it the redis client) and the
// database pool.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.Pool != nil {
		if err := a.Pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
