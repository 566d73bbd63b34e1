package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/database"
	"github.com/quizsmith/quizsmith-backend/internal/handler"
	"github.com/quizsmith/quizsmith-backend/internal/logger"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/quizsmith/quizsmith-backend/internal/router"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
	"github.com/quizsmith/quizsmith-backend/internal/worker"
)

const (
	// workerDrainGrace gives the queue workers a moment to finish the
	// jobs they already popped before the process exits.
	workerDrainGrace = 2 * time.Second
	// shutdownTimeout bounds how long in-flight HTTP requests may run
	// once the stop signal lands.
	shutdownTimeout = 5 * time.Second
)

func main() {
	// ─── Configuration and logging ─────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting QuizSmith Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Datastores ────────────────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Postgres connection failed")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer rdb.Close()

	// ─── Repositories ──────────────────────────────────────────────────
	authorRepo := repository.NewAuthorRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	pageRepo := repository.NewPageRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	revisionRepo := repository.NewRevisionRepository(pool)
	collectionRepo := repository.NewCollectionRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Services ──────────────────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	activityService := service.NewActivityService(activityRepo, rdb, log)
	pageService := service.NewPageService(pageRepo, questionRepo, revisionRepo, activityService, rdb, log)
	questionService := service.NewQuestionService(questionRepo, pageService)
	authorService := service.NewAuthorService(authorRepo, roleRepo, authService)
	roleService := service.NewRoleService(roleRepo)
	collectionService := service.NewCollectionService(collectionRepo, log)
	settingService := service.NewSettingService(settingRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo, activityRepo)
	mediaService := service.NewMediaService(cfg, activityService)
	editorService := service.NewEditorService(cfg, pageRepo, questionRepo, settingRepo, activityService, rdb, log)

	// ─── HTTP handlers ─────────────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, authorService),
		Page:       handler.NewPageHandler(pageService),
		Question:   handler.NewQuestionHandler(questionService),
		Editor:     handler.NewEditorWSHandler(editorService, log, cfg.AllowedOrigins),
		Media:      handler.NewMediaHandler(mediaService),
		Author:     handler.NewAuthorHandler(authorService, roleService),
		Role:       handler.NewRoleHandler(roleService),
		Collection: handler.NewCollectionHandler(collectionService),
		Setting:    handler.NewSettingHandler(settingService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Activity:   handler.NewActivityHandler(rdb, activityService, log),
		System:     handler.NewSystemHandler(rdb, editorService, log),
	}

	// ─── Queue workers ─────────────────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	snapshotWorker := worker.NewSnapshotWorker(pool, rdb, log)
	activityWorker := worker.NewActivityWorker(pool, rdb, log)
	pruneWorker := worker.NewRevisionPruneWorker(pool, rdb, cfg, log)

	go snapshotWorker.Start(workerCtx)
	go activityWorker.Start(workerCtx)
	go pruneWorker.Start(workerCtx)

	// ─── Cache prewarm ─────────────────────────────────────────────────
	// Fill the publish caches before the listener opens so the first
	// reader request never races a lazy load.
	if err := pageService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Publish cache prewarm failed")
	}

	// ─── HTTP server ───────────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router.SetupRouter(authService, handlers, cfg),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// ─── Graceful shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutdown started")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server did not stop cleanly")
	}

	// Editor sessions flush before the workers stop so their final
	// snapshots make it out of the queue and into Postgres.
	editorService.CloseAll(shutdownCtx)

	workerCancel()
	time.Sleep(workerDrainGrace)

	log.Info().Msg("Shutdown complete")
}
