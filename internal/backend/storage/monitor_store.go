package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/pkg/uuidutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type monitorStore struct {
	pool *pgxpool.Pool
}

func NewMonitorStore(pool *pgxpool.Pool) MonitorStore {
	return &monitorStore{pool: pool}
}

// monitorSettings настройки конкретного типа монитора, хранятся в jsonb
type monitorSettings struct {
	HTTP     *models.HTTPSettings      `json:"http,omitempty"`
	Port     *models.PortSettings      `json:"port,omitempty"`
	Ping     *models.PingSettings      `json:"ping,omitempty"`
	MQTT     *models.MQTTSettings      `json:"mqtt,omitempty"`
	Push     *models.PushSettings      `json:"push,omitempty"`
	Radius   *models.RadiusSettings    `json:"radius,omitempty"`
	DNS      *models.DNSSettings       `json:"dns,omitempty"`
	Schedule *models.RecurringSchedule `json:"schedule,omitempty"`
}

const monitorColumns = `id, name, type, interval_seconds, retry_interval_seconds, max_retries,
	resend_interval, upside_down, active, settings, notification_ids, maintenance_ids,
	created_at, updated_at`

func (s *monitorStore) Create(ctx context.Context, monitor *models.Monitor) error {
	if monitor.ID == "" {
		monitor.ID = uuidutil.New()
	}
	monitor.CreatedAt = time.Now().UTC()
	monitor.UpdatedAt = monitor.CreatedAt

	settings, err := marshalSettings(monitor)
	if err != nil {
		return err
	}

	query := `INSERT INTO monitors (` + monitorColumns + `, push_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''))`

	_, err = s.pool.Exec(ctx, query,
		monitor.ID,
		monitor.Name,
		monitor.Type,
		monitor.Interval,
		monitor.RetryInterval,
		monitor.MaxRetries,
		monitor.ResendInterval,
		monitor.UpsideDown,
		monitor.Active,
		settings,
		nonNil(monitor.NotificationIDs),
		nonNil(monitor.MaintenanceIDs),
		monitor.CreatedAt,
		monitor.UpdatedAt,
		monitor.PushToken(),
	)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	return nil
}

func (s *monitorStore) GetByID(ctx context.Context, id string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1`
	return s.getOne(ctx, query, id)
}

func (s *monitorStore) GetByPushToken(ctx context.Context, token string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE push_token = $1`
	return s.getOne(ctx, query, token)
}

func (s *monitorStore) getOne(ctx context.Context, query string, arg string) (*models.Monitor, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitor: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query monitor: %w", err)
		}
		return nil, nil
	}
	return scanMonitor(rows)
}

func (s *monitorStore) Update(ctx context.Context, monitor *models.Monitor) error {
	monitor.UpdatedAt = time.Now().UTC()

	settings, err := marshalSettings(monitor)
	if err != nil {
		return err
	}

	query := `UPDATE monitors SET name = $2, type = $3, interval_seconds = $4,
		retry_interval_seconds = $5, max_retries = $6, resend_interval = $7, upside_down = $8,
		active = $9, settings = $10, notification_ids = $11, maintenance_ids = $12,
		updated_at = $13, push_token = NULLIF($14, '')
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		monitor.ID,
		monitor.Name,
		monitor.Type,
		monitor.Interval,
		monitor.RetryInterval,
		monitor.MaxRetries,
		monitor.ResendInterval,
		monitor.UpsideDown,
		monitor.Active,
		settings,
		nonNil(monitor.NotificationIDs),
		nonNil(monitor.MaintenanceIDs),
		monitor.UpdatedAt,
		monitor.PushToken(),
	)
	if err != nil {
		return fmt.Errorf("failed to update monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update monitor %s: %w", monitor.ID, ErrNotFound)
	}
	return nil
}

func (s *monitorStore) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE monitors SET active = $1, updated_at = $2 WHERE id = $3`

	tag, err := s.pool.Exec(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update monitor state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update monitor %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete удаляет монитор вместе с его heartbeat (ON DELETE CASCADE)
func (s *monitorStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete monitor %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *monitorStore) List(ctx context.Context, limit, offset int) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	defer rows.Close()

	return scanMonitors(rows)
}

func (s *monitorStore) ListActive(ctx context.Context) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE active ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active monitors: %w", err)
	}
	defer rows.Close()

	return scanMonitors(rows)
}

func scanMonitors(rows pgx.Rows) ([]*models.Monitor, error) {
	monitors := make([]*models.Monitor, 0)
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monitor rows: %w", err)
	}
	return monitors, nil
}

func scanMonitor(rows pgx.Rows) (*models.Monitor, error) {
	var m models.Monitor
	var settingsJSON []byte

	err := rows.Scan(
		&m.ID,
		&m.Name,
		&m.Type,
		&m.Interval,
		&m.RetryInterval,
		&m.MaxRetries,
		&m.ResendInterval,
		&m.UpsideDown,
		&m.Active,
		&settingsJSON,
		&m.NotificationIDs,
		&m.MaintenanceIDs,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan monitor row: %w", err)
	}

	if len(settingsJSON) > 0 {
		var settings monitorSettings
		if err := json.Unmarshal(settingsJSON, &settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal monitor settings: %w", err)
		}
		m.HTTP = settings.HTTP
		m.Port = settings.Port
		m.Ping = settings.Ping
		m.MQTT = settings.MQTT
		m.Push = settings.Push
		m.Radius = settings.Radius
		m.DNS = settings.DNS
		m.Schedule = settings.Schedule
	}

	return &m, nil
}

func marshalSettings(m *models.Monitor) ([]byte, error) {
	data, err := json.Marshal(monitorSettings{
		HTTP:     m.HTTP,
		Port:     m.Port,
		Ping:     m.Ping,
		MQTT:     m.MQTT,
		Push:     m.Push,
		Radius:   m.Radius,
		DNS:      m.DNS,
		Schedule: m.Schedule,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal monitor settings: %w", err)
	}
	return data, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
