package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-anpr-service/internal/auth"
	"parking-anpr-service/internal/config"
	"parking-anpr-service/internal/db"
	"parking-anpr-service/internal/http/middleware"
	"parking-anpr-service/internal/logger"
	"parking-anpr-service/internal/recognizer"
	"parking-anpr-service/internal/repository"
	"parking-anpr-service/internal/service"
	"parking-anpr-service/internal/storage"

	httphandler "parking-anpr-service/internal/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	remote := recognizer.NewRemoteRecognizer(cfg.Recognizer.RemoteEndpoint, cfg.Recognizer.RemoteTimeout, appLogger)
	local := recognizer.NewLocalRecognizer(rng, appLogger)
	fallback := recognizer.NewFallbackRecognizer(remote, local, appLogger)

	plateRepo := repository.NewPlateRepository(database)

	// Preview storage is optional, won't fail if not configured.
	var previews service.PreviewStore
	r2Client, err := storage.NewR2ClientFromEnv()
	if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		appLogger.Fatal().Err(err).Msg("failed to initialize R2 client")
	}
	if err != nil {
		appLogger.Warn().Msg("R2 storage not configured, image previews will be disabled")
	} else {
		previews = r2Client
	}

	billingService := service.NewBillingService(plateRepo, cfg.Billing.RatePerSecond, rng, appLogger)
	recognitionService := service.NewRecognitionService(fallback, billingService, previews, appLogger)
	recordService := service.NewRecordService(plateRepo, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(recognitionService, recordService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, database)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting parking ANPR service")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}
