package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-progress-api/internal/client"
	"github.com/noah-isme/course-progress-api/internal/handler"
	"github.com/noah-isme/course-progress-api/internal/repository"
	"github.com/noah-isme/course-progress-api/internal/server"
	"github.com/noah-isme/course-progress-api/internal/service"
	"github.com/noah-isme/course-progress-api/pkg/config"
	"github.com/noah-isme/course-progress-api/pkg/database"
	"github.com/noah-isme/course-progress-api/pkg/logger"
	"github.com/noah-isme/course-progress-api/pkg/tracing"
)

// @title Progress Service API
// @version 0.1.0
// @description Lesson viewing progress and course completion.
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.ServiceName == config.DefaultServiceName {
		cfg.ServiceName = "progress-service"
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(ctx, cfg, logr)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, database.ProgressSchema, cfg.Database.MigrationsDir); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	cacheSvc, closeCache, err := server.NewCache(cfg, metrics, logr)
	if err != nil {
		logr.Fatal("failed to init cache", zap.Error(err))
	}
	defer closeCache() //nolint:errcheck

	effects := service.NewSideEffects(cfg.Echo, cfg.Directory.Timeout, metrics, logr)
	effects.Start(ctx)
	defer effects.Stop()

	progress := service.NewProgressService(
		repository.NewLessonProgressRepository(db),
		client.NewCourseClient(cfg.Directory.CourseServiceURL, cfg.Directory.Timeout, metrics, logr),
		client.NewEnrollmentClient(cfg.Directory.EnrollmentServiceURL, cfg.Directory.Timeout, metrics, logr),
		cacheSvc,
		effects,
		metrics,
		cfg.Progress,
		validator.New(),
		logr,
	)

	r := server.NewEngine(cfg, logr, metrics, handler.NewMetricsHandler(metrics, db, cfg.ServiceName))
	handler.RegisterProgressRoutes(r.Group(cfg.APIPrefix), handler.NewProgressHandler(progress))

	if err := server.Serve(ctx, cfg, r, logr); err != nil {
		logr.Error("server failed", zap.Error(err))
	}
}
