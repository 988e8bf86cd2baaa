package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediasync/internal/http/handlers"
	httpapi "mediasync/internal/http/httpapi"
	"mediasync/internal/infra"
	"mediasync/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.RequireJWTSecret(); err != nil {
		logger.Fatal().Err(err).Msg("api: refusing to start without authentication")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncSide, err := pipeline.NewSync(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure staging")
	}
	regen, pool, err := pipeline.NewRegenerator(ctx, cfg, &logger, syncSide.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure regeneration")
	}
	defer pool.Close()

	go func() {
		if err := syncSide.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("api: scheduler stopped")
		}
	}()

	app := handlers.NewApp(regen, syncSide.Controller, &logger)
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      &logger,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("staging", syncSide.Store.BasePath()).
			Dur("sync_interval", cfg.SyncInterval).
			Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api: http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: stopped")
}
