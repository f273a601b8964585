package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/pkg/uuidutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type notificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) NotificationStore {
	return &notificationStore{pool: pool}
}

type notificationSettings struct {
	Webhook *models.WebhookSettings `json:"webhook,omitempty"`
	Redis   *models.RedisSettings   `json:"redis,omitempty"`
}

const notificationColumns = `id, name, type, active, is_default, template, settings, created_at`

func (s *notificationStore) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuidutil.New()
	}
	n.CreatedAt = time.Now().UTC()

	settings, err := json.Marshal(notificationSettings{Webhook: n.Webhook, Redis: n.Redis})
	if err != nil {
		return fmt.Errorf("failed to marshal notification settings: %w", err)
	}

	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.pool.Exec(ctx, query,
		n.ID,
		n.Name,
		n.Type,
		n.Active,
		n.IsDefault,
		n.Template,
		settings,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *notificationStore) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	list, err := s.query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *notificationStore) List(ctx context.Context) ([]*models.Notification, error) {
	return s.query(ctx, `SELECT `+notificationColumns+` FROM notifications ORDER BY created_at ASC`)
}

// ListByIDs возвращает уведомления в порядке ids
func (s *notificationStore) ListByIDs(ctx context.Context, ids []string) ([]*models.Notification, error) {
	if len(ids) == 0 {
		return []*models.Notification{}, nil
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE id = ANY($1)
		ORDER BY array_position($1, id)`
	return s.query(ctx, query, ids)
}

func (s *notificationStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete notification %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *notificationStore) query(ctx context.Context, query string, args ...any) ([]*models.Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotifications(rows pgx.Rows) ([]*models.Notification, error) {
	list := make([]*models.Notification, 0)

	for rows.Next() {
		var n models.Notification
		var settingsJSON []byte

		err := rows.Scan(
			&n.ID,
			&n.Name,
			&n.Type,
			&n.Active,
			&n.IsDefault,
			&n.Template,
			&settingsJSON,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}

		if len(settingsJSON) > 0 {
			var settings notificationSettings
			if err := json.Unmarshal(settingsJSON, &settings); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification settings: %w", err)
			}
			n.Webhook = settings.Webhook
			n.Redis = settings.Redis
		}
		list = append(list, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return list, nil
}
