package database

import (
	"context"
	"fmt"
	"time"

	"library-backend/pkg/logger"
)

// Ping verifies the database answers within 5s
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close drains the pool. Safe to call more than once.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	db.Pool.Close()
	db.Pool = nil

	logger.Info("database pool closed", nil)
	return nil
}

// PoolStats is a snapshot of pgxpool statistics
type PoolStats struct {
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	AcquireCount         int64
	CanceledAcquireCount int64
	AvgAcquireDuration   time.Duration
}

func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	stats := &PoolStats{
		AcquiredConns:        raw.AcquiredConns(),
		IdleConns:            raw.IdleConns(),
		TotalConns:           raw.TotalConns(),
		MaxConns:             raw.MaxConns(),
		AcquireCount:         raw.AcquireCount(),
		CanceledAcquireCount: raw.CanceledAcquireCount(),
	}
	if stats.AcquireCount > 0 {
		stats.AvgAcquireDuration = raw.AcquireDuration() / time.Duration(stats.AcquireCount)
	}

	return stats, nil
}

// MonitorPoolHealth logs a warning whenever the pool runs hot.
// Runs until ctx is cancelled.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				logger.Error("pool stats unavailable", err)
				continue
			}
			if stats.MaxConns > 0 {
				utilization := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
				if utilization > 80 {
					logger.Warn("high pool utilization", map[string]interface{}{
						"utilization_pct": utilization,
						"acquired":        stats.AcquiredConns,
						"max":             stats.MaxConns,
					})
				}
			}
			if stats.AvgAcquireDuration > 100*time.Millisecond {
				logger.Warn("high pool acquire latency", map[string]interface{}{
					"avg_acquire": stats.AvgAcquireDuration.String(),
				})
			}
		case <-ctx.Done():
			return
		}
	}
}
