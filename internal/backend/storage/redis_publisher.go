package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"Vigil/internal/config"

	"github.com/redis/go-redis/v9"
)

// HeartbeatChannel канал, в который публикуются heartbeat
const HeartbeatChannel = "vigil:heartbeats"

type redisPublisher struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(cfg *config.RedisConfig, log *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(cfg.GetRedisOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "error", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis", "addr", cfg.Addr)
	return client, nil
}

func NewRedisPublisher(client *redis.Client, log *slog.Logger) EventPublisher {
	return &redisPublisher{client: client, log: log}
}

func (r *redisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	var data []byte
	var err error

	switch v := message.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		data, err = json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
	}

	r.log.Debug("Publishing event to Redis",
		"channel", channel,
		"length", len(data),
	)

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (r *redisPublisher) Close() error {
	return r.client.Close()
}
