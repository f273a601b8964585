package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Vigil/internal/backend/models"
	"Vigil/internal/backend/storage"
	runner "Vigil/internal/engine/runners"
)

// PushRequest параметры входящего сигнала: ?status=up&msg=OK&ping=12
type PushRequest struct {
	Status  string   `form:"status" json:"status"`
	Message string   `form:"msg" json:"msg"`
	Ping    *float64 `form:"ping" json:"ping"`
}

// PushService принимает сигналы push мониторов. Heartbeat пишет scheduler
// на следующем цикле, здесь сигнал только запоминается
type PushService struct {
	monitors storage.MonitorStore
	beacons  *runner.PushRunner
	logger   *slog.Logger
}

func NewPushService(monitors storage.MonitorStore, beacons *runner.PushRunner, logger *slog.Logger) *PushService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushService{
		monitors: monitors,
		beacons:  beacons,
		logger:   logger,
	}
}

func (s *PushService) Push(ctx context.Context, token string, req PushRequest) error {
	if token == "" {
		return fmt.Errorf("%w: empty push token", ErrMonitorNotFound)
	}

	monitor, err := s.monitors.GetByPushToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to get monitor by push token: %w", err)
	}
	if monitor == nil || monitor.Type != models.MonitorTypePush {
		s.logger.Warn("push rejected: unknown token")
		return ErrMonitorNotFound
	}
	if !monitor.Active {
		s.logger.Warn("push rejected: monitor paused", "monitor_id", monitor.ID)
		return fmt.Errorf("%w: %s", ErrMonitorInactive, monitor.ID)
	}

	status := models.StatusUp
	if strings.EqualFold(req.Status, "down") {
		status = models.StatusDown
	}

	s.beacons.Record(monitor.ID, runner.Beacon{
		Status:  status,
		Message: req.Message,
		Ping:    req.Ping,
	})

	s.logger.Debug("push recorded",
		"monitor_id", monitor.ID,
		"status", status.String(),
	)
	return nil
}

// Forget удаляет сигналы удаленного монитора
func (s *PushService) Forget(monitor *models.Monitor) {
	s.beacons.Forget(monitor.ID)
}
