package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	"library-backend/internal/shared"
	"library-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	cfg       config.WorkerConfig
}

func NewScheduler(redisOpt asynq.RedisConnOpt, cfg config.WorkerConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		cfg:       cfg,
	}
}

func (s *Scheduler) RegisterJobs() error {
	if err := s.registerOverdueScanJob(); err != nil {
		return err
	}
	return s.registerFullAvailabilitySyncJob()
}

// ================================================
// JOB 1: Overdue scan
// ================================================
func (s *Scheduler) registerOverdueScanJob() error {
	payload, err := json.Marshal(shared.OverdueScanPayload{Limit: 50})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeOverdueScan, payload)
	_, err = s.scheduler.Register(
		s.cfg.OverdueScanCron,
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register OverdueScan job", err)
		return err
	}

	logger.Info("Registered OverdueScan", map[string]interface{}{"cron": s.cfg.OverdueScanCron})
	return nil
}

// ================================================
// JOB 2: Full availability sync
// ================================================
// Rebuilds every cached availability snapshot in case an event was lost.
func (s *Scheduler) registerFullAvailabilitySyncJob() error {
	payload, err := json.Marshal(shared.AvailabilitySyncPayload{Source: "scheduler"})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeAvailabilitySync, payload)
	_, err = s.scheduler.Register(
		s.cfg.SyncScanCron,
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register AvailabilitySync job", err)
		return err
	}

	logger.Info("Registered AvailabilitySync", map[string]interface{}{"cron": s.cfg.SyncScanCron})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
