package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Vigil/internal/backend/models"

	"golang.org/x/sync/errgroup"
)

// NotificationSource уведомления монитора в порядке его списка
type NotificationSource interface {
	ListByIDs(ctx context.Context, ids []string) ([]*models.Notification, error)
}

type Dispatcher struct {
	store     NotificationSource
	providers map[models.NotificationType]Provider
	timeout   time.Duration
	logger    *slog.Logger
}

func NewDispatcher(store NotificationSource, timeout time.Duration, logger *slog.Logger, providers ...Provider) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	byType := make(map[models.NotificationType]Provider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &Dispatcher{
		store:     store,
		providers: byType,
		timeout:   timeout,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Dispatch отправляет уведомление во все активные провайдеры монитора.
// Каждый провайдер работает в своей горутине, ошибка одного не мешает остальным
func (d *Dispatcher) Dispatch(ctx context.Context, monitor *models.Monitor, heartbeat *models.Heartbeat) error {
	if len(monitor.NotificationIDs) == 0 {
		return nil
	}

	notifications, err := d.store.ListByIDs(ctx, monitor.NotificationIDs)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	text := DefaultMessage(monitor, heartbeat)

	// Group без контекста: ошибка одного провайдера не отменяет остальные
	var g errgroup.Group
	errs := make([]error, len(notifications))
	for i, n := range notifications {
		if !n.Active {
			continue
		}
		g.Go(func() error {
			if err := d.send(ctx, n, Message{Text: text, Monitor: monitor, Heartbeat: heartbeat}); err != nil {
				errs[i] = fmt.Errorf("notification %q: %w", n.Name, err)
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	return nil
}

// SendTest отправляет тестовое уведомление без монитора и heartbeat
func (d *Dispatcher) SendTest(ctx context.Context, notification *models.Notification) error {
	return d.send(ctx, notification, Message{Text: DefaultMessage(nil, nil) + " Test notification from Vigil"})
}

func (d *Dispatcher) send(ctx context.Context, notification *models.Notification, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", notification.Type, r)
		}
		if err != nil {
			d.logger.Error("failed to send notification",
				"notification_id", notification.ID,
				"type", notification.Type,
				"error", err,
			)
		}
	}()

	provider, ok := d.providers[notification.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, notification.Type)
	}

	if notification.Template != "" {
		rendered, err := Render(notification.Template, msg.Text, msg.Monitor, msg.Heartbeat)
		if err != nil {
			return err
		}
		msg.Text = rendered
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := provider.Send(sendCtx, notification, msg); err != nil {
		return err
	}

	d.logger.Info("notification sent",
		"notification_id", notification.ID,
		"type", notification.Type,
		"monitor_id", monitorID(msg.Monitor),
	)
	return nil
}

func monitorID(m *models.Monitor) string {
	if m == nil {
		return ""
	}
	return m.ID
}
