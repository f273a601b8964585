package services

import (
	"context"
	"fmt"
	"log/slog"

	"Vigil/internal/backend/models"
	"Vigil/internal/backend/storage"
	"Vigil/internal/engine/maintenance"

	"code.cloudfoundry.org/clock"
)

// MaintenanceStatus окно и признак того, что оно действует сейчас
type MaintenanceStatus struct {
	*models.MaintenanceWindow
	UnderMaintenance bool `json:"under_maintenance"`
}

type MaintenanceService struct {
	store  storage.MaintenanceStore
	clock  clock.Clock
	logger *slog.Logger
}

func NewMaintenanceService(store storage.MaintenanceStore, clk clock.Clock, logger *slog.Logger) *MaintenanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceService{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

func (s *MaintenanceService) Create(ctx context.Context, window *models.MaintenanceWindow) (*models.MaintenanceWindow, error) {
	s.logger.Info("creating maintenance window",
		"title", window.Title,
		"strategy", window.Strategy,
		"monitors", len(window.MonitorIDs),
	)

	if err := maintenance.ValidateWindow(window); err != nil {
		s.logger.Warn("maintenance window rejected", "title", window.Title, "error", err)
		return nil, err
	}

	if err := s.store.Create(ctx, window); err != nil {
		s.logger.Error("failed to create maintenance window in storage", "error", err)
		return nil, fmt.Errorf("failed to create maintenance window: %w", err)
	}

	s.logger.Info("maintenance window created", "maintenance_id", window.ID)
	return window, nil
}

// Upsert заменяет окно с тем же id, используется при импорте
func (s *MaintenanceService) Upsert(ctx context.Context, window *models.MaintenanceWindow) (*models.MaintenanceWindow, error) {
	existing, err := s.store.GetByID(ctx, window.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance window: %w", err)
	}
	if existing != nil {
		if err := maintenance.ValidateWindow(window); err != nil {
			return nil, err
		}
		if err := s.store.Delete(ctx, window.ID); err != nil {
			return nil, fmt.Errorf("failed to replace maintenance window: %w", err)
		}
	}
	return s.Create(ctx, window)
}

func (s *MaintenanceService) Get(ctx context.Context, id string) (*MaintenanceStatus, error) {
	window, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.status(window), nil
}

func (s *MaintenanceService) List(ctx context.Context) ([]*MaintenanceStatus, error) {
	s.logger.Debug("listing maintenance windows")

	windows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance windows: %w", err)
	}
	out := make([]*MaintenanceStatus, 0, len(windows))
	for _, w := range windows {
		out = append(out, s.status(w))
	}
	return out, nil
}

// SetActive включает или выключает окно. Для ручной стратегии это и есть начало и конец обслуживания
func (s *MaintenanceService) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.getExisting(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to update maintenance window: %w", err)
	}

	s.logger.Info("maintenance window toggled", "maintenance_id", id, "active", active)
	return nil
}

func (s *MaintenanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.getExisting(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete maintenance window: %w", err)
	}

	s.logger.Info("maintenance window deleted", "maintenance_id", id)
	return nil
}

func (s *MaintenanceService) status(window *models.MaintenanceWindow) *MaintenanceStatus {
	return &MaintenanceStatus{
		MaintenanceWindow: window,
		UnderMaintenance:  maintenance.IsActive(window, s.clock.Now()),
	}
}

func (s *MaintenanceService) getExisting(ctx context.Context, id string) (*models.MaintenanceWindow, error) {
	window, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance window: %w", err)
	}
	if window == nil {
		return nil, fmt.Errorf("%w: %s", ErrMaintenanceNotFound, id)
	}
	return window, nil
}
