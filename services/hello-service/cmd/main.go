package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"RestAPIPlatform/pkg/config"
	pkglogger "RestAPIPlatform/pkg/logger"
	"RestAPIPlatform/pkg/metrics"
	"RestAPIPlatform/services/hello-service/internal/app"
)

func main() {
	// Путь к файлу конфигурации опционален, без него используются значения по умолчанию и окружение
	cfg, err := config.LoadConfig(os.Getenv("HELLO_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := pkglogger.NewLogger(cfg.Environment, cfg.Logger.Level, app.ServiceName,
		pkglogger.WithFormat(cfg.Logger.Format))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := metrics.InitTracing(app.ServiceName, app.Version, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Error("Failed to init tracing", pkglogger.Error(err))
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Error("Tracing shutdown failed", pkglogger.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	if err := application.Start(ctx); err != nil {
		logger.Error("Failed to start server", pkglogger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", pkglogger.Error(err))
	}
}
