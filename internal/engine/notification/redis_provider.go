package notification

import (
	"context"

	"Vigil/internal/backend/models"
)

// Publisher публикация в канал, реализуется storage.EventPublisher
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisProvider публикует уведомление в канал Redis pub/sub
type RedisProvider struct {
	publisher Publisher
}

func NewRedisProvider(publisher Publisher) *RedisProvider {
	return &RedisProvider{publisher: publisher}
}

func (p *RedisProvider) Type() models.NotificationType {
	return models.NotificationRedis
}

func (p *RedisProvider) Send(ctx context.Context, notification *models.Notification, msg Message) error {
	if notification.Redis == nil {
		return NormalizeError("redis settings are missing", nil)
	}
	if err := p.publisher.Publish(ctx, notification.Redis.Channel, newPayload(msg)); err != nil {
		return NormalizeError(err.Error(), nil)
	}
	return nil
}
