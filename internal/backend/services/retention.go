package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"Vigil/internal/backend/storage"

	"code.cloudfoundry.org/clock"
)

// RetentionJob периодически удаляет старые heartbeat
type RetentionJob struct {
	heartbeats storage.HeartbeatStore
	retention  time.Duration
	interval   time.Duration
	clock      clock.Clock
	doneChan   chan struct{}
	stopped    chan struct{}
	running    atomic.Bool
	logger     *slog.Logger
}

func NewRetentionJob(heartbeats storage.HeartbeatStore, retention, interval time.Duration, clk clock.Clock, logger *slog.Logger) *RetentionJob {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionJob{
		heartbeats: heartbeats,
		retention:  retention,
		interval:   interval,
		clock:      clk,
		doneChan:   make(chan struct{}),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

func (j *RetentionJob) Start() {
	if !j.running.CompareAndSwap(false, true) {
		return
	}
	go j.run()

	j.logger.Info("heartbeat retention started",
		"retention", j.retention,
		"interval", j.interval,
	)
}

func (j *RetentionJob) Stop() {
	if !j.running.CompareAndSwap(true, false) {
		return
	}
	close(j.doneChan)
	<-j.stopped
	j.logger.Info("heartbeat retention stopped")
}

func (j *RetentionJob) Running() bool {
	return j.running.Load()
}

func (j *RetentionJob) run() {
	defer close(j.stopped)

	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.Prune(context.Background())
		select {
		case <-j.doneChan:
			return
		case <-ticker.C():
		}
	}
}

// Prune удаляет heartbeat старше срока хранения. Нулевой срок отключает очистку
func (j *RetentionJob) Prune(ctx context.Context) int64 {
	if j.retention <= 0 {
		return 0
	}

	cutoff := j.clock.Now().Add(-j.retention)
	deleted, err := j.heartbeats.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("failed to prune heartbeats", "error", err, "cutoff", cutoff)
		return 0
	}
	if deleted > 0 {
		j.logger.Info("old heartbeats pruned", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted
}
