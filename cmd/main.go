package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/game-orchestrator/brackets"
	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/db"
	"github.com/Dosada05/game-orchestrator/handlers"
	"github.com/Dosada05/game-orchestrator/middleware"
	"github.com/Dosada05/game-orchestrator/repositories"
	api "github.com/Dosada05/game-orchestrator/routes"
	"github.com/Dosada05/game-orchestrator/services"
	"github.com/Dosada05/game-orchestrator/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var uploader storage.FileUploader
	if cfg.ArchiveEnabled {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("tournament archiving disabled, R2 configuration incomplete")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)

	registry := services.NewGameRegistry()
	engine := services.NewEngineClient(cfg.AIServiceURL, logger)
	gameService := services.NewGameService(cfg.GameModes, registry, engine, gameRepo, playerRepo, logger)
	roomService := services.NewRoomService(cfg.GameModes, cfg.MatchCooldown, gameService, wsHub, playerRepo, uploader, logger)

	// A crash may have left players marked in_game and games that look
	// live; settle those before accepting traffic.
	if err := gameService.ReconcileOnStartup(context.Background()); err != nil {
		logger.Error("startup reconciliation failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("startup reconciliation complete")

	// Supervisory loop: one tournament step, then one watchdog pass over
	// the game registry, every tick. Running the tournament step first lets
	// matches observe terminal statuses before the registry drains them.
	supervisorCtx, stopSupervisor := context.WithCancel(context.Background())
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		logger.Info("supervisory loop started", slog.Duration("interval", cfg.TickInterval))
		for {
			select {
			case <-supervisorCtx.Done():
				return
			case <-ticker.C:
				roomService.Tick(supervisorCtx)
				gameService.WatchdogTick(supervisorCtx)
			}
		}
	}()

	auth := middleware.NewServiceAuth(cfg.JWTSecretKey)
	gameHandler := handlers.NewGameHandler(gameService)
	tournamentHandler := handlers.NewTournamentHandler(roomService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, roomService)

	router := chi.NewRouter()
	api.SetupRoutes(router, auth, gameHandler, tournamentHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()

		stopSupervisor()
		<-supervisorDone

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}

		// Live games must not be orphaned on the engine side.
		gameService.Shutdown(shutdownCtx)
		logger.Info("shutdown drain complete")
	}
	logger.Info("application exited")
}
