package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/backup"
	"tasktracker/internal/config"
	apphttp "tasktracker/internal/http"
	"tasktracker/internal/repository/sqlite"
	"tasktracker/internal/service"
	"tasktracker/internal/session"
	"tasktracker/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db, logger); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	taskRepo := sqlite.NewTaskRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	sessions, err := session.NewManager(sessionRepo, session.Config{
		Secret: cfg.Auth.SessionSecret,
		TTL:    cfg.SessionTTL(),
	})
	if err != nil {
		logger.Fatalf("session manager: %v", err)
	}
	if n, err := sessions.PurgeExpired(ctx); err != nil {
		logger.Warnf("purge expired sessions: %v", err)
	} else if n > 0 {
		logger.Infof("purged %d expired sessions", n)
	}

	handler, err := apphttp.NewHandler(apphttp.Options{
		Users:        service.NewUserService(userRepo, 0),
		Tasks:        service.NewTaskService(taskRepo),
		Sessions:     sessions,
		Logger:       logger,
		DB:           db,
		SecureCookie: cfg.Auth.SecureCookie,
	})
	if err != nil {
		logger.Fatalf("build handler: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
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

	if cfg.BackupsEnabled() {
		runBackup(cfg, db, logger)
	}

	logger.Info("bye")
}

func runBackup(cfg config.Config, db *sql.DB, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Warnf("setup storage: %v", err)
		return
	}

	runner := backup.NewRunner(backup.Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Retain:    cfg.Storage.Retain,
		Logger:    logger,
	}, func(ctx context.Context, dest string) error {
		return sqlite.Snapshot(ctx, db, dest)
	}, store)

	if _, err := runner.Run(ctx); err != nil {
		logger.Warnf("database backup: %v", err)
	}
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
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
