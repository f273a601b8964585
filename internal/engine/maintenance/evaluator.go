package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Vigil/internal/backend/models"
)

// WindowSource источник окон обслуживания, обычно storage.MaintenanceStore
type WindowSource interface {
	ListMaintenanceWindows(ctx context.Context, monitorID string, windowIDs []string) ([]*models.MaintenanceWindow, error)
}

// Evaluator решает находится ли монитор в активном окне обслуживания
type Evaluator struct {
	store  WindowSource
	logger *slog.Logger
}

func NewEvaluator(store WindowSource, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		store:  store,
		logger: logger,
	}
}

// IsUnderMaintenance true если активно хотя бы одно окно, покрывающее монитор
func (e *Evaluator) IsUnderMaintenance(ctx context.Context, monitor *models.Monitor, now time.Time) (bool, error) {
	windows, err := e.store.ListMaintenanceWindows(ctx, monitor.ID, monitor.MaintenanceIDs)
	if err != nil {
		return false, fmt.Errorf("failed to list maintenance windows: %w", err)
	}

	for _, w := range windows {
		if IsActive(w, now) {
			e.logger.Debug("monitor is under maintenance",
				"monitor_id", monitor.ID,
				"maintenance_id", w.ID,
				"strategy", w.Strategy,
			)
			return true, nil
		}
	}
	return false, nil
}

// IsActive проверяет одно окно. Выражение cron должно быть уже проверено через ValidateCron,
// окно с неразборчивым выражением считается неактивным
func IsActive(w *models.MaintenanceWindow, now time.Time) bool {
	if !w.Active {
		return false
	}

	switch w.Strategy {
	case models.StrategyManual:
		return true
	case models.StrategySingle:
		return within(w.Start, w.DurationValue(), now)
	case models.StrategyRecurringInterval:
		return recurringActive(w, now)
	case models.StrategyCron:
		return cronActive(w, now)
	default:
		return false
	}
}

func within(start time.Time, duration time.Duration, now time.Time) bool {
	return !now.Before(start) && now.Before(start.Add(duration))
}

// recurringActive окна начинаются в Start + k*IntervalDays календарных дней в таймзоне окна
func recurringActive(w *models.MaintenanceWindow, now time.Time) bool {
	if w.IntervalDays < 1 || now.Before(w.Start) {
		return false
	}
	loc, err := models.LoadLocation(w.Timezone)
	if err != nil {
		return false
	}

	anchor := w.Start.In(loc)
	period := time.Duration(w.IntervalDays) * 24 * time.Hour
	k := int(now.Sub(anchor) / period)

	// переход на летнее время сдвигает окно на час, поэтому смотрим соседние k
	for _, n := range []int{k - 1, k, k + 1} {
		if n < 0 {
			continue
		}
		start := anchor.AddDate(0, 0, n*w.IntervalDays)
		if within(start, w.DurationValue(), now) {
			return true
		}
	}
	return false
}

// cronActive активно если последний запуск t удовлетворяет t <= now < t+duration
func cronActive(w *models.MaintenanceWindow, now time.Time) bool {
	tz := w.Timezone
	if tz == "" {
		tz = "UTC"
	}
	schedule, err := parseCron(w.Cron, tz)
	if err != nil {
		return false
	}
	duration := w.DurationValue()
	if duration <= 0 {
		return false
	}

	// Next возвращает время строго после аргумента
	fire := schedule.Next(now.Add(-duration))
	return !fire.IsZero() && !fire.After(now)
}
