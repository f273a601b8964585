package storage

import (
	"context"
	"fmt"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/pkg/uuidutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type maintenanceStore struct {
	pool *pgxpool.Pool
}

func NewMaintenanceStore(pool *pgxpool.Pool) MaintenanceStore {
	return &maintenanceStore{pool: pool}
}

const maintenanceColumns = `id, title, strategy, active, start_at, timezone, interval_days,
	cron, duration_seconds, monitor_ids, created_at`

func (s *maintenanceStore) Create(ctx context.Context, w *models.MaintenanceWindow) error {
	if w.ID == "" {
		w.ID = uuidutil.New()
	}
	w.CreatedAt = time.Now().UTC()

	var start *time.Time
	if !w.Start.IsZero() {
		start = &w.Start
	}

	query := `INSERT INTO maintenance_windows (` + maintenanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		w.ID,
		w.Title,
		w.Strategy,
		w.Active,
		start,
		w.Timezone,
		w.IntervalDays,
		w.Cron,
		w.Duration,
		nonNil(w.MonitorIDs),
		w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create maintenance window: %w", err)
	}
	return nil
}

func (s *maintenanceStore) GetByID(ctx context.Context, id string) (*models.MaintenanceWindow, error) {
	windows, err := s.query(ctx, `SELECT `+maintenanceColumns+` FROM maintenance_windows WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}
	return windows[0], nil
}

func (s *maintenanceStore) List(ctx context.Context) ([]*models.MaintenanceWindow, error) {
	return s.query(ctx, `SELECT `+maintenanceColumns+` FROM maintenance_windows ORDER BY created_at ASC`)
}

// ListMaintenanceWindows окна, в которые входит монитор, плюс окна из windowIDs
func (s *maintenanceStore) ListMaintenanceWindows(ctx context.Context, monitorID string, windowIDs []string) ([]*models.MaintenanceWindow, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_windows
		WHERE $1 = ANY(monitor_ids) OR id = ANY($2)
		ORDER BY created_at ASC`
	return s.query(ctx, query, monitorID, nonNil(windowIDs))
}

func (s *maintenanceStore) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE maintenance_windows SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update maintenance window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update maintenance window %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *maintenanceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM maintenance_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete maintenance window %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *maintenanceStore) query(ctx context.Context, query string, args ...any) ([]*models.MaintenanceWindow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance windows: %w", err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

func scanWindows(rows pgx.Rows) ([]*models.MaintenanceWindow, error) {
	windows := make([]*models.MaintenanceWindow, 0)

	for rows.Next() {
		var w models.MaintenanceWindow
		var start *time.Time

		err := rows.Scan(
			&w.ID,
			&w.Title,
			&w.Strategy,
			&w.Active,
			&start,
			&w.Timezone,
			&w.IntervalDays,
			&w.Cron,
			&w.Duration,
			&w.MonitorIDs,
			&w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance window row: %w", err)
		}
		if start != nil {
			w.Start = *start
		}
		windows = append(windows, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating maintenance window rows: %w", err)
	}
	return windows, nil
}
