package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Vigil/internal/backend/models"
	"Vigil/internal/backend/storage"
	"Vigil/pkg/keylock"
	"Vigil/pkg/uuidutil"
	"Vigil/pkg/validator"
)

// Scheduler управление таймлайнами мониторов, см. scheduler.Scheduler
type Scheduler interface {
	Start(monitor *models.Monitor) error
	Stop(monitorID string) bool
	Reschedule(monitor *models.Monitor) error
	Running(monitorID string) bool
}

// MonitorForgetter очищает состояние удаленного монитора (push сигналы, метрики)
type MonitorForgetter interface {
	Forget(monitor *models.Monitor)
}

type MonitorService struct {
	monitors      storage.MonitorStore
	heartbeats    storage.HeartbeatStore
	notifications storage.NotificationStore
	scheduler     Scheduler
	forgetters    []MonitorForgetter
	locks         *keylock.Mutex // изменения одного монитора выполняются по очереди
	logger        *slog.Logger
}

func NewMonitorService(
	monitors storage.MonitorStore,
	heartbeats storage.HeartbeatStore,
	notifications storage.NotificationStore,
	scheduler Scheduler,
	logger *slog.Logger,
	forgetters ...MonitorForgetter,
) *MonitorService {

	if logger == nil {
		logger = slog.Default()
	}

	return &MonitorService{
		monitors:      monitors,
		heartbeats:    heartbeats,
		notifications: notifications,
		scheduler:     scheduler,
		forgetters:    forgetters,
		locks:         keylock.New(),
		logger:        logger,
	}
}

// Create сохраняет монитор и запускает его таймлайн если он активен
func (s *MonitorService) Create(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error) {
	if monitor.ID != "" {
		unlock := s.locks.Lock(monitor.ID)
		defer unlock()
	}
	return s.create(ctx, monitor)
}

func (s *MonitorService) create(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error) {
	s.logger.Info("creating monitor",
		"name", monitor.Name,
		"type", monitor.Type,
	)

	if err := s.prepare(monitor); err != nil {
		s.logger.Warn("monitor rejected", "name", monitor.Name, "error", err)
		return nil, err
	}

	if monitor.NotificationIDs == nil {
		defaults, err := s.defaultNotificationIDs(ctx)
		if err != nil {
			return nil, err
		}
		monitor.NotificationIDs = defaults
	}

	if err := s.monitors.Create(ctx, monitor); err != nil {
		s.logger.Error("failed to create monitor in storage",
			"error", err,
			"name", monitor.Name,
		)
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	if monitor.Active {
		if err := s.scheduler.Start(monitor); err != nil {
			s.logger.Error("failed to schedule monitor",
				"error", err,
				"monitor_id", monitor.ID,
			)
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	s.logger.Info("monitor created",
		"monitor_id", monitor.ID,
		"name", monitor.Name,
		"active", monitor.Active,
		"notifications", len(monitor.NotificationIDs),
	)
	return monitor, nil
}

// Update заменяет настройки монитора. Флаг активности меняется только через Pause/Resume
func (s *MonitorService) Update(ctx context.Context, id string, monitor *models.Monitor) (*models.Monitor, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.update(ctx, id, monitor)
}

func (s *MonitorService) update(ctx context.Context, id string, monitor *models.Monitor) (*models.Monitor, error) {
	existing, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	monitor.ID = id
	monitor.Active = existing.Active
	if monitor.Type == models.MonitorTypePush && monitor.PushToken() == "" && existing.PushToken() != "" {
		monitor.Push = &models.PushSettings{Token: existing.PushToken()}
	}
	if err := s.prepare(monitor); err != nil {
		s.logger.Warn("monitor update rejected", "monitor_id", id, "error", err)
		return nil, err
	}

	if err := s.monitors.Update(ctx, monitor); err != nil {
		s.logger.Error("failed to update monitor in storage",
			"error", err,
			"monitor_id", id,
		)
		return nil, fmt.Errorf("failed to update monitor: %w", err)
	}

	if monitor.Active {
		if err := s.scheduler.Reschedule(monitor); err != nil {
			return nil, fmt.Errorf("failed to reschedule monitor: %w", err)
		}
	}

	s.logger.Info("monitor updated", "monitor_id", id, "name", monitor.Name)
	return monitor, nil
}

func (s *MonitorService) Pause(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.pause(ctx, id)
}

func (s *MonitorService) pause(ctx context.Context, id string) error {
	if _, err := s.getExisting(ctx, id); err != nil {
		return err
	}
	if err := s.monitors.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to pause monitor: %w", err)
	}
	s.scheduler.Stop(id)

	s.logger.Info("monitor paused", "monitor_id", id)
	return nil
}

func (s *MonitorService) Resume(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.resume(ctx, id)
}

func (s *MonitorService) resume(ctx context.Context, id string) error {
	monitor, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}
	if err := s.monitors.SetActive(ctx, id, true); err != nil {
		return fmt.Errorf("failed to resume monitor: %w", err)
	}
	monitor.Active = true
	if err := s.scheduler.Reschedule(monitor); err != nil {
		return fmt.Errorf("failed to resume monitor: %w", err)
	}

	s.logger.Info("monitor resumed", "monitor_id", id)
	return nil
}

// Delete останавливает таймлайн до удаления, чтобы цикл не записал heartbeat удаленного монитора
func (s *MonitorService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	monitor, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}

	s.scheduler.Stop(id)
	if err := s.monitors.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete monitor from storage",
			"error", err,
			"monitor_id", id,
		)
		return fmt.Errorf("failed to delete monitor: %w", err)
	}
	for _, f := range s.forgetters {
		f.Forget(monitor)
	}

	s.logger.Info("monitor deleted", "monitor_id", id, "name", monitor.Name)
	return nil
}

func (s *MonitorService) Get(ctx context.Context, id string) (*models.MonitorWithStatus, error) {
	s.logger.Debug("getting monitor", "monitor_id", id)

	monitor, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withStatus(ctx, monitor)
}

func (s *MonitorService) List(ctx context.Context, limit, offset int) ([]*models.MonitorWithStatus, error) {
	s.logger.Debug("listing monitors", "limit", limit, "offset", offset)

	monitors, err := s.monitors.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}

	out := make([]*models.MonitorWithStatus, 0, len(monitors))
	for _, m := range monitors {
		withStatus, err := s.withStatus(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, withStatus)
	}
	return out, nil
}

func (s *MonitorService) Heartbeats(ctx context.Context, id string, limit int) ([]*models.Heartbeat, error) {
	if _, err := s.getExisting(ctx, id); err != nil {
		return nil, err
	}
	beats, err := s.heartbeats.ListHeartbeats(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list heartbeats: %w", err)
	}
	return beats, nil
}

// Stats доступность по последним limit heartbeat. Время считается по Duration,
// поэтому пропуски в расписании не искажают процент
func (s *MonitorService) Stats(ctx context.Context, id string, limit int) (*models.MonitorStats, error) {
	beats, err := s.Heartbeats(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	return CalculateStats(id, beats), nil
}

func CalculateStats(monitorID string, beats []*models.Heartbeat) *models.MonitorStats {
	stats := &models.MonitorStats{MonitorID: monitorID, Heartbeats: len(beats)}
	if len(beats) == 0 {
		return stats
	}
	stats.CurrentState = beats[0].Status.String()

	var latencySum float64
	var latencyCount int
	for _, hb := range beats {
		switch hb.Status {
		case models.StatusUp, models.StatusMaintenance:
			stats.UpSeconds += hb.Duration
		case models.StatusDown:
			stats.DownSeconds += hb.Duration
		}
		if hb.Latency != nil {
			latencySum += *hb.Latency
			latencyCount++
		}
	}

	if total := stats.UpSeconds + stats.DownSeconds; total > 0 {
		stats.Uptime = float64(stats.UpSeconds) / float64(total) * 100
	}
	if latencyCount > 0 {
		stats.AverageMs = latencySum / float64(latencyCount)
	}
	return stats
}

// StartAll запускает все активные мониторы при старте процесса.
// Ошибка одного монитора не мешает остальным
func (s *MonitorService) StartAll(ctx context.Context) (int, error) {
	monitors, err := s.monitors.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active monitors: %w", err)
	}

	started := 0
	for _, m := range monitors {
		if s.scheduler.Running(m.ID) {
			continue
		}
		if err := s.scheduler.Start(m); err != nil {
			s.logger.Error("failed to start monitor",
				"error", err,
				"monitor_id", m.ID,
				"name", m.Name,
			)
			continue
		}
		started++
	}

	s.logger.Info("active monitors started",
		"total", len(monitors),
		"started", started,
	)
	return started, nil
}

// Upsert создает или обновляет монитор с заданным id, используется при импорте
func (s *MonitorService) Upsert(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error) {
	unlock := s.locks.Lock(monitor.ID)
	defer unlock()

	existing, err := s.monitors.GetByID(ctx, monitor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}
	if existing == nil {
		return s.create(ctx, monitor)
	}

	active := monitor.Active
	updated, err := s.update(ctx, monitor.ID, monitor)
	if err != nil {
		return nil, err
	}
	if active != existing.Active {
		if active {
			err = s.resume(ctx, monitor.ID)
		} else {
			err = s.pause(ctx, monitor.ID)
		}
		if err != nil {
			return nil, err
		}
		updated.Active = active
	}
	return updated, nil
}

func (s *MonitorService) prepare(monitor *models.Monitor) error {
	if !validator.ValidateMonitorType(string(monitor.Type)) {
		return fmt.Errorf("%w: unknown monitor type %q", models.ErrInvalidMonitor, monitor.Type)
	}

	monitor.ApplyDefaults()
	if monitor.Type == models.MonitorTypePush {
		if monitor.Push == nil {
			monitor.Push = &models.PushSettings{}
		}
		if monitor.Push.Token == "" {
			monitor.Push.Token = uuidutil.NewToken()
		}
	}

	if err := monitor.Validate(); err != nil {
		return err
	}

	switch monitor.Type {
	case models.MonitorTypePort, models.MonitorTypePing, models.MonitorTypeDNS, models.MonitorTypeRadius:
		if !validator.ValidateHostname(monitor.Hostname()) {
			return fmt.Errorf("%w: invalid hostname %q", models.ErrInvalidMonitor, monitor.Hostname())
		}
	case models.MonitorTypeHTTP:
		if !validator.ValidateTarget(monitor.HTTP.URL) {
			return fmt.Errorf("%w: invalid url %q", models.ErrInvalidMonitor, monitor.HTTP.URL)
		}
	}
	return nil
}

func (s *MonitorService) defaultNotificationIDs(ctx context.Context) ([]string, error) {
	all, err := s.notifications.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	ids := make([]string, 0)
	for _, n := range all {
		if n.IsDefault {
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

func (s *MonitorService) getExisting(ctx context.Context, id string) (*models.Monitor, error) {
	monitor, err := s.monitors.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get monitor from storage",
			"error", err,
			"monitor_id", id,
		)
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}
	if monitor == nil {
		return nil, fmt.Errorf("%w: %s", ErrMonitorNotFound, id)
	}
	return monitor, nil
}

func (s *MonitorService) withStatus(ctx context.Context, monitor *models.Monitor) (*models.MonitorWithStatus, error) {
	latest, err := s.heartbeats.LatestHeartbeat(ctx, monitor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest heartbeat: %w", err)
	}
	return &models.MonitorWithStatus{Monitor: monitor, Latest: latest}, nil
}

// IsNotFound ошибки поиска сущностей сервисов
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMonitorNotFound) ||
		errors.Is(err, ErrMaintenanceNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, storage.ErrNotFound)
}
