package main

import (
	"library-backend/internal/infrastructure/queue"
	"library-backend/pkg/logger"
)

// asynqScheduler wraps queue.Scheduler with logging
type asynqScheduler struct {
	*queue.Scheduler
}

func setupScheduler(cfg *Config) (*asynqScheduler, error) {
	scheduler := queue.NewScheduler(cfg.RedisOpt, cfg.Worker)

	if err := scheduler.RegisterJobs(); err != nil {
		return nil, err
	}

	go func() {
		logger.Info("[Scheduler] starting", nil)
		if err := scheduler.Start(); err != nil {
			logger.Error("[Scheduler] stopped with error", err)
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}, nil
}

func (s *asynqScheduler) Shutdown() {
	logger.Info("[Scheduler] shutting down", nil)
	s.Scheduler.Shutdown()
}
