package storage

import (
	"context"
	"errors"
	"time"

	"Vigil/internal/backend/models"
)

var ErrNotFound = errors.New("not found")

// MonitorStore интерфейс для работы с мониторами
type MonitorStore interface {
	Create(ctx context.Context, monitor *models.Monitor) error
	GetByID(ctx context.Context, id string) (*models.Monitor, error)
	GetByPushToken(ctx context.Context, token string) (*models.Monitor, error)
	Update(ctx context.Context, monitor *models.Monitor) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Monitor, error)
	ListActive(ctx context.Context) ([]*models.Monitor, error)
}

// HeartbeatStore интерфейс для работы с heartbeat, только добавление
type HeartbeatStore interface {
	AppendHeartbeat(ctx context.Context, heartbeat *models.Heartbeat) error
	LatestHeartbeat(ctx context.Context, monitorID string) (*models.Heartbeat, error)
	ListHeartbeats(ctx context.Context, monitorID string, limit int) ([]*models.Heartbeat, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// MaintenanceStore интерфейс для работы с окнами обслуживания
type MaintenanceStore interface {
	Create(ctx context.Context, window *models.MaintenanceWindow) error
	GetByID(ctx context.Context, id string) (*models.MaintenanceWindow, error)
	List(ctx context.Context) ([]*models.MaintenanceWindow, error)
	ListMaintenanceWindows(ctx context.Context, monitorID string, windowIDs []string) ([]*models.MaintenanceWindow, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// NotificationStore интерфейс для работы с уведомлениями
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context) ([]*models.Notification, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Notification, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher публикация событий о heartbeat
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}
