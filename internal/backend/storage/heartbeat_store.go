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

type heartbeatStore struct {
	pool *pgxpool.Pool
}

func NewHeartbeatStore(pool *pgxpool.Pool) HeartbeatStore {
	return &heartbeatStore{pool: pool}
}

const heartbeatColumns = `id, monitor_id, time, status, latency_ms, msg, important, resend,
	duration_seconds, retries, down_count, settled`

func (s *heartbeatStore) AppendHeartbeat(ctx context.Context, hb *models.Heartbeat) error {
	if hb.ID == "" {
		hb.ID = uuidutil.New()
	}

	query := `INSERT INTO heartbeats (` + heartbeatColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		hb.ID,
		hb.MonitorID,
		hb.Time,
		hb.Status,
		hb.Latency,
		hb.Message,
		hb.Important,
		hb.Resend,
		hb.Duration,
		hb.Retries,
		hb.DownCount,
		hb.Settled,
	)
	if err != nil {
		return fmt.Errorf("failed to append heartbeat: %w", err)
	}
	return nil
}

// LatestHeartbeat текущий статус монитора, nil если проверок еще не было
func (s *heartbeatStore) LatestHeartbeat(ctx context.Context, monitorID string) (*models.Heartbeat, error) {
	beats, err := s.ListHeartbeats(ctx, monitorID, 1)
	if err != nil {
		return nil, err
	}
	if len(beats) == 0 {
		return nil, nil
	}
	return beats[0], nil
}

func (s *heartbeatStore) ListHeartbeats(ctx context.Context, monitorID string, limit int) ([]*models.Heartbeat, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + heartbeatColumns + ` FROM heartbeats
		WHERE monitor_id = $1
		ORDER BY time DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query heartbeats: %w", err)
	}
	defer rows.Close()

	return scanHeartbeats(rows)
}

func (s *heartbeatStore) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM heartbeats WHERE time < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old heartbeats: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanHeartbeats(rows pgx.Rows) ([]*models.Heartbeat, error) {
	beats := make([]*models.Heartbeat, 0)

	for rows.Next() {
		var hb models.Heartbeat
		err := rows.Scan(
			&hb.ID,
			&hb.MonitorID,
			&hb.Time,
			&hb.Status,
			&hb.Latency,
			&hb.Message,
			&hb.Important,
			&hb.Resend,
			&hb.Duration,
			&hb.Retries,
			&hb.DownCount,
			&hb.Settled,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan heartbeat row: %w", err)
		}
		beats = append(beats, &hb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating heartbeat rows: %w", err)
	}
	return beats, nil
}
