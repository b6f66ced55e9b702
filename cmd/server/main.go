package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/auth"
	"tasktracker/internal/backup"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	apphttp "tasktracker/internal/http"
	"tasktracker/internal/logging"
	"tasktracker/internal/repository"
	"tasktracker/internal/repository/postgres"
	"tasktracker/internal/repository/sqlite"
	"tasktracker/internal/service"
	"tasktracker/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("setup logger: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer repos.close()

	if err := repos.users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := repos.tasks.Init(ctx); err != nil {
		logger.Fatalf("init task repository: %v", err)
	}

	profiles, closeCache := buildProfileCache(ctx, cfg, logger)
	defer closeCache()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	userService := service.NewUserService(repos.users, hasher, tokens, profiles)
	taskService := service.NewTaskService(repos.tasks)

	var backups backup.Manager
	if cfg.Backup.Bucket != "" {
		backups, err = buildBackupManager(ctx, cfg, repos.sqlDB, logger)
		if err != nil {
			logger.Fatalf("setup backups: %v", err)
		}
		if err := backups.Start(ctx); err != nil {
			logger.Fatalf("start backups: %v", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, taskService, auth.NewGuard(tokens), logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s (%s driver)", cfg.Server.Addr, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if backups != nil {
		backups.Shutdown()
	}

	logger.Info("bye")
}

type repositories struct {
	users repository.UserRepository
	tasks repository.TaskRepository
	// sqlDB is set for the sqlite driver only; backups snapshot it.
	sqlDB *sql.DB
	close func()
}

func openRepositories(ctx context.Context, cfg config.Config) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		return &repositories{
			users: postgres.NewUserRepository(pool),
			tasks: postgres.NewTaskRepository(pool),
			close: pool.Close,
		}, nil
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return &repositories{
			users: sqlite.NewUserRepository(db),
			tasks: sqlite.NewTaskRepository(db),
			sqlDB: db,
			close: func() { _ = db.Close() },
		}, nil
	}
}

func buildProfileCache(ctx context.Context, cfg config.Config, logger *logrus.Logger) (service.ProfileCache, func()) {
	if cfg.Cache.RedisAddr == "" {
		return cache.Noop{}, func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warnf("redis at %s unreachable, profile reads will hit the database", cfg.Cache.RedisAddr)
	} else {
		logger.Infof("profile cache using redis at %s", cfg.Cache.RedisAddr)
	}
	return cache.NewRedisProfileCache(client, cfg.Cache.Prefix, cfg.Cache.TTL, logger), func() { _ = client.Close() }
}

func buildBackupManager(ctx context.Context, cfg config.Config, db *sql.DB, logger *logrus.Logger) (backup.Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("backups require the %s driver", config.DriverSQLite)
	}

	store, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return backup.NewManager(backup.Config{
		Bucket:    cfg.Backup.Bucket,
		KeyPrefix: cfg.Backup.KeyPrefix,
		Interval:  cfg.Backup.Interval,
		Retain:    cfg.Backup.Retain,
		TempDir:   cfg.Backup.TempDir,
		Logger:    logger,
	}, func(ctx context.Context, dest string) error {
		return sqlite.Snapshot(ctx, db, dest)
	}, store), nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Backup.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
