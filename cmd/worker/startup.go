package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/container"
	"library-backend/pkg/logger"
)

// checkDependencies refuses to start a worker that cannot reach its queue
func checkDependencies(c *container.Container) error {
	if c.Redis == nil {
		return errors.New("redis is required by the worker")
	}
	if c.DB == nil {
		return errors.New("worker needs STORAGE_BACKEND=postgres, in-memory stores are per process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	services, healthy := c.Health(ctx)
	logger.Info("[Startup] dependency check", map[string]interface{}{
		"database": services["database"],
		"redis":    services["redis"],
	})
	if !healthy {
		return fmt.Errorf("dependencies unhealthy: %v", services)
	}
	return nil
}

// startHealthCheckServer serves /health and /ready for the orchestrator
func startHealthCheckServer(c *container.Container, port string) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "UP", "service": "library-worker"})
	})
	router.GET("/ready", func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		services, healthy := c.Health(checkCtx)
		if !healthy {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "services": services})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "READY", "services": services})
	})

	logger.Info("[Health] starting health check server", map[string]interface{}{"port": port})
	if err := router.Run(":" + port); err != nil {
		logger.Error("[Health] failed to start", err)
	}
}
