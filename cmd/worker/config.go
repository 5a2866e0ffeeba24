package main

import (
	"os"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	"library-backend/pkg/logger"
)

// Config holds the worker-only settings; everything shared comes from
// internal/config through the container.
type Config struct {
	RedisOpt   asynq.RedisClientOpt
	Worker     config.WorkerConfig
	HealthPort string
}

func loadConfig(app *config.Config) *Config {
	cfg := &Config{
		RedisOpt: asynq.RedisClientOpt{
			Addr:     app.Redis.Host,
			Password: app.Redis.Password,
			DB:       app.Redis.DB,
		},
		Worker:     app.Worker,
		HealthPort: getEnv("WORKER_HEALTH_PORT", "9999"),
	}

	logger.Info("worker config loaded", map[string]interface{}{
		"redis":       cfg.RedisOpt.Addr,
		"concurrency": cfg.Worker.Concurrency,
	})
	return cfg
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
