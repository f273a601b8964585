package notification

import (
	"context"

	"Vigil/internal/backend/models"
)

// Message готовое уведомление для провайдера
type Message struct {
	Text      string
	Monitor   *models.Monitor
	Heartbeat *models.Heartbeat
}

// Provider транспорт уведомлений одного типа
type Provider interface {
	Type() models.NotificationType
	Send(ctx context.Context, notification *models.Notification, msg Message) error
}

// payload тело, которое получают webhook и redis провайдеры
type payload struct {
	Heartbeat *models.Heartbeat `json:"heartbeat"`
	Monitor   *models.Monitor   `json:"monitor"`
	Msg       string            `json:"msg"`
}

func newPayload(msg Message) payload {
	return payload{Heartbeat: msg.Heartbeat, Monitor: msg.Monitor.Redacted(), Msg: msg.Text}
}
