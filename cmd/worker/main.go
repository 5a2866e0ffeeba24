package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"library-backend/pkg/container"
	"library-backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using system environment", nil)
	}

	c, err := container.NewContainer()
	if err != nil {
		logger.Error("[Container] failed to initialize", err)
		os.Exit(1)
	}
	defer c.Cleanup()

	cfg := loadConfig(c.Config)

	if err := checkDependencies(c); err != nil {
		logger.Error("[Startup] health check failed", err)
		return
	}

	handlers := initializeHandlers(c)
	srv := setupAsynqServer(cfg, handlers)

	scheduler, err := setupScheduler(cfg)
	if err != nil {
		logger.Error("[Scheduler] failed to register jobs", err)
		srv.Shutdown()
		return
	}

	go startHealthCheckServer(c, cfg.HealthPort)

	waitForShutdown(srv, scheduler)
}

func waitForShutdown(srv *asynqServer, scheduler *asynqScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("[Shutdown] gracefully stopping", nil)
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info("[Shutdown] stopped", nil)
}
