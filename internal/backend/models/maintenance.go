package models

import (
	"errors"
	"fmt"
	"time"
)

type MaintenanceStrategy string

const (
	StrategySingle            MaintenanceStrategy = "single"
	StrategyRecurringInterval MaintenanceStrategy = "recurring-interval"
	StrategyCron              MaintenanceStrategy = "cron"
	StrategyManual            MaintenanceStrategy = "manual"
)

var ErrInvalidMaintenance = errors.New("invalid maintenance window")

type MaintenanceWindow struct {
	ID           string              `json:"id" yaml:"id"`
	Title        string              `json:"title" yaml:"title"`
	Strategy     MaintenanceStrategy `json:"strategy" yaml:"strategy"`
	Active       bool                `json:"active" yaml:"-"`
	Start        time.Time           `json:"start" yaml:"start"`
	Timezone     string              `json:"timezone" yaml:"timezone"`
	IntervalDays int                 `json:"interval_days,omitempty" yaml:"interval_days,omitempty"`
	Cron         string              `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration     int                 `json:"duration" yaml:"duration"` // в секундах
	MonitorIDs   []string            `json:"monitor_ids" yaml:"monitors"`
	CreatedAt    time.Time           `json:"created_at" yaml:"-"`
}

func (w *MaintenanceWindow) DurationValue() time.Duration {
	return time.Duration(w.Duration) * time.Second
}

// Covers относится ли окно к монитору
func (w *MaintenanceWindow) Covers(monitorID string) bool {
	for _, id := range w.MonitorIDs {
		if id == monitorID {
			return true
		}
	}
	return false
}

// Validate базовая проверка полей. Cron выражение проверяется в пакете maintenance
func (w *MaintenanceWindow) Validate() error {
	if w.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidMaintenance)
	}
	if _, err := LoadLocation(w.Timezone); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMaintenance, err)
	}

	switch w.Strategy {
	case StrategyManual:
		return nil
	case StrategySingle:
		if w.Start.IsZero() {
			return fmt.Errorf("%w: start is required", ErrInvalidMaintenance)
		}
	case StrategyRecurringInterval:
		if w.Start.IsZero() {
			return fmt.Errorf("%w: start is required", ErrInvalidMaintenance)
		}
		if w.IntervalDays < 1 {
			return fmt.Errorf("%w: interval_days must be at least 1", ErrInvalidMaintenance)
		}
	case StrategyCron:
		if w.Cron == "" {
			return fmt.Errorf("%w: cron expression is required", ErrInvalidMaintenance)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidMaintenance, w.Strategy)
	}

	if w.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidMaintenance)
	}
	return nil
}
