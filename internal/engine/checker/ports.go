package checker

import (
	"context"
	"time"

	"Vigil/internal/backend/models"
	runner "Vigil/internal/engine/runners"
)

type MaintenanceChecker interface {
	IsUnderMaintenance(ctx context.Context, monitor *models.Monitor, now time.Time) (bool, error)
}

// ProberSource выдает prober по типу монитора, см. runner.Factory
type ProberSource interface {
	GetProber(monitorType models.MonitorType) (runner.Prober, error)
}

type HeartbeatStore interface {
	LatestHeartbeat(ctx context.Context, monitorID string) (*models.Heartbeat, error)
	AppendHeartbeat(ctx context.Context, heartbeat *models.Heartbeat) error
}

type Notifier interface {
	Dispatch(ctx context.Context, monitor *models.Monitor, heartbeat *models.Heartbeat) error
}

// HeartbeatSink локальные подписчики, см. events.Hub
type HeartbeatSink interface {
	Publish(heartbeat *models.Heartbeat)
}

type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}
