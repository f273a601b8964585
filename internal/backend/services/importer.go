package services

import (
	"context"
	"fmt"
	"log/slog"

	"Vigil/internal/config"
)

// Importer применяет файл определений: уведомления, окна обслуживания, затем мониторы
type Importer struct {
	monitors      *MonitorService
	maintenance   *MaintenanceService
	notifications *NotificationService
	logger        *slog.Logger
}

func NewImporter(monitors *MonitorService, maintenance *MaintenanceService, notifications *NotificationService, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		monitors:      monitors,
		maintenance:   maintenance,
		notifications: notifications,
		logger:        logger,
	}
}

func (i *Importer) Import(ctx context.Context, defs *config.Definitions) error {
	if err := defs.Validate(); err != nil {
		return err
	}

	for _, n := range defs.NotificationModels() {
		if _, err := i.notifications.Upsert(ctx, n); err != nil {
			return fmt.Errorf("failed to import notification %s: %w", n.ID, err)
		}
	}
	for _, w := range defs.MaintenanceModels() {
		if _, err := i.maintenance.Upsert(ctx, w); err != nil {
			return fmt.Errorf("failed to import maintenance window %s: %w", w.ID, err)
		}
	}
	for _, m := range defs.MonitorModels() {
		if _, err := i.monitors.Upsert(ctx, m); err != nil {
			return fmt.Errorf("failed to import monitor %s: %w", m.ID, err)
		}
	}

	i.logger.Info("definitions imported",
		"notifications", len(defs.Notifications),
		"maintenance", len(defs.Maintenance),
		"monitors", len(defs.Monitors),
	)
	return nil
}
