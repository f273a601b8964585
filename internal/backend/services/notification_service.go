package services

import (
	"context"
	"fmt"
	"log/slog"

	"Vigil/internal/backend/models"
	"Vigil/internal/backend/storage"
)

// TestSender отправка тестового уведомления, см. notification.Dispatcher
type TestSender interface {
	SendTest(ctx context.Context, notification *models.Notification) error
}

type NotificationService struct {
	store  storage.NotificationStore
	sender TestSender
	logger *slog.Logger
}

func NewNotificationService(store storage.NotificationStore, sender TestSender, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

func (s *NotificationService) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	s.logger.Info("creating notification", "name", notification.Name, "type", notification.Type)

	notification.ApplyDefaults()
	if err := notification.Validate(); err != nil {
		s.logger.Warn("notification rejected", "name", notification.Name, "error", err)
		return nil, err
	}

	if err := s.store.Create(ctx, notification); err != nil {
		s.logger.Error("failed to create notification in storage", "error", err)
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.Info("notification created",
		"notification_id", notification.ID,
		"is_default", notification.IsDefault,
	)
	return notification, nil
}

// Upsert заменяет уведомление с тем же id, используется при импорте
func (s *NotificationService) Upsert(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	existing, err := s.store.GetByID(ctx, notification.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if existing != nil {
		notification.ApplyDefaults()
		if err := notification.Validate(); err != nil {
			return nil, err
		}
		if err := s.store.Delete(ctx, notification.ID); err != nil {
			return nil, fmt.Errorf("failed to replace notification: %w", err)
		}
	}
	return s.Create(ctx, notification)
}

func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	return s.getExisting(ctx, id)
}

func (s *NotificationService) List(ctx context.Context) ([]*models.Notification, error) {
	s.logger.Debug("listing notifications")

	notifications, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if _, err := s.getExisting(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	s.logger.Info("notification deleted", "notification_id", id)
	return nil
}

// SendTest отправляет тестовое сообщение, ошибка провайдера возвращается как есть
func (s *NotificationService) SendTest(ctx context.Context, id string) error {
	notification, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}
	return s.sender.SendTest(ctx, notification)
}

func (s *NotificationService) getExisting(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if notification == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	return notification, nil
}
