package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avatarctic/tabrefresh/configs"
	"github.com/avatarctic/tabrefresh/internal/application/services"
	"github.com/avatarctic/tabrefresh/internal/core/domain/task"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/animations"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/db"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/health"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/host"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/httpserver"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/metrics"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/redis"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.WithField("version", version).Info("Starting presentation refresh engine...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	recorder := metrics.NewRecorder()
	hcSlice := []ports.HealthChecker{}

	// Permission store: Postgres when enabled, in-memory otherwise
	var permissionRepo ports.PermissionRepository
	if cfg.Database.Enabled {
		database, err := db.NewDatabase(&cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()

		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}
		permissionRepo = repositories.NewPermissionRepository(database, logger)
		hcSlice = append(hcSlice, health.NewDBHealthChecker(database))
	} else {
		logger.Warn("Database disabled, using in-memory permission store")
		permissionRepo = repositories.NewMemoryPermissionRepository()
	}

	// Host loop: authoritative context, client registry and local presentation surface
	loop := host.NewLoop(cfg.Engine.TickRate, logger)
	var surface ports.PresentationSurface = loop
	var invalidator ports.ProfileInvalidator

	var refresh ports.RefreshService
	var listener *redis.ChangeListener
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()

		// Shared second-level profile cache in front of the permission store
		redisCache := redis.NewRedisCache(redisClient, cfg.Redis.KeyPrefix, "profiles")
		caching := repositories.NewCachingPermissionRepository(permissionRepo, redisCache, cfg.Redis.ProfileTTL, logger)
		permissionRepo = caching
		invalidator = caching

		surface = redis.NewSnapshotPublisher(redisClient, cfg.Redis.PresentationChannel, loop)
		listener = redis.NewChangeListener(redisClient, cfg.Redis.ChangeChannel, func(ctx context.Context, id uuid.UUID) {
			refresh.HandlePermissionChange(ctx, id)
		}, logger)
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
	}

	// Engine components
	scheduler := services.NewSchedulerService(loop, services.SchedulerConfig{
		Workers:         cfg.Engine.Workers,
		TimerWorkers:    cfg.Engine.TimerWorkers,
		QueueLimit:      cfg.Engine.QueueLimit,
		Admission:       task.AdmissionPolicy(cfg.Engine.Admission),
		ShutdownTimeout: cfg.Engine.ShutdownTimeout,
	}, recorder, logger)

	profiles := services.NewProfileCache(permissionRepo, cfg.Engine.ProfileTTL, recorder, logger)
	animationEngine := services.NewAnimationService(logger, services.WithAnimationMetrics(recorder))
	source := animations.NewFileSource(cfg.Animations.File, logger)

	refresh = services.NewRefreshService(services.RefreshConfig{
		BatchSize:         cfg.Engine.BatchSize,
		RefreshInterval:   cfg.Engine.RefreshInterval,
		CleanupInterval:   cfg.Engine.CleanupInterval,
		InitialDelayTicks: int64(cfg.Engine.InitialDelayTicks),
		Templates: services.Templates{
			DisplayName: cfg.Presentation.DisplayName,
			Header:      cfg.Presentation.Header,
			Footer:      cfg.Presentation.Footer,
		},
	}, services.RefreshDeps{
		Profiles:    profiles,
		Diffs:       services.NewPresentationDiffCache(recorder),
		Animations:  animationEngine,
		Source:      source,
		Scheduler:   scheduler,
		Directory:   loop,
		Surface:     surface,
		Invalidator: invalidator,
		Metrics:     recorder,
		Logger:      logger,
	})

	hcSlice = append(hcSlice, health.NewHostHealthChecker(loop), health.NewSchedulerHealthChecker(scheduler))

	loop.Start(ctx)
	if err := refresh.Start(ctx); err != nil {
		logger.Fatal("Failed to start refresh pipeline:", err)
	}

	if listener != nil {
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.WithError(err).Error("Permission change listener stopped")
			}
		}()
	}

	if cfg.Animations.Watch {
		watcher := animations.NewWatcher(source.Path(), cfg.Animations.Debounce, func() {
			scheduler.SubmitNamed(services.AnimationReloadTask, func(taskCtx context.Context) error {
				_, err := refresh.ReloadAnimations(taskCtx)
				return err
			})
		}, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.WithError(err).Error("Animations watcher stopped")
			}
		}()
	}

	// Admin HTTP server
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		Version:        version,
		AdminJWTSecret: cfg.Server.AdminJWTSecret,
	}
	if serverConfig.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, admin API is unauthenticated")
	}
	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		Refresh:        refresh,
		Animations:     animationEngine,
		Scheduler:      scheduler,
		Profiles:       profiles,
		Permissions:    permissionRepo,
		Registry:       loop,
		Directory:      loop,
		Viewer:         loop,
		Metrics:        recorder,
		HealthCheckers: hcSlice,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.WithField("addr", server.Addr()).Info("Engine started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down engine...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Admin server forced to shutdown")
	}

	refresh.Stop()
	scheduler.Shutdown()
	stop()
	loop.Stop()

	logger.Info("Engine exited")
}
