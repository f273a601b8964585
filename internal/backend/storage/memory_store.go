package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/pkg/uuidutil"
)

// Memory хранилище в памяти процесса для тестов и запуска без базы
type Memory struct {
	Monitors      *memoryMonitorStore
	Heartbeats    *memoryHeartbeatStore
	Maintenance   *memoryMaintenanceStore
	Notifications *memoryNotificationStore
}

func NewMemory() *Memory {
	return &Memory{
		Monitors:      &memoryMonitorStore{items: make(map[string]*models.Monitor)},
		Heartbeats:    &memoryHeartbeatStore{items: make(map[string][]*models.Heartbeat)},
		Maintenance:   &memoryMaintenanceStore{items: make(map[string]*models.MaintenanceWindow)},
		Notifications: &memoryNotificationStore{items: make(map[string]*models.Notification)},
	}
}

// clone глубокая копия через JSON, чтобы вызывающий код не менял хранимые данные
func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("storage: failed to clone %T: %v", v, err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("storage: failed to clone %T: %v", v, err))
	}
	return &out
}

type memoryMonitorStore struct {
	mu    sync.RWMutex
	items map[string]*models.Monitor
}

func (s *memoryMonitorStore) Create(_ context.Context, monitor *models.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if monitor.ID == "" {
		monitor.ID = uuidutil.New()
	}
	if _, exists := s.items[monitor.ID]; exists {
		return fmt.Errorf("failed to create monitor: id %s already exists", monitor.ID)
	}
	now := time.Now().UTC()
	monitor.CreatedAt = now
	monitor.UpdatedAt = now
	s.items[monitor.ID] = clone(monitor)
	return nil
}

func (s *memoryMonitorStore) GetByID(_ context.Context, id string) (*models.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return clone(m), nil
}

func (s *memoryMonitorStore) GetByPushToken(_ context.Context, token string) (*models.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.items {
		if token != "" && m.PushToken() == token {
			return clone(m), nil
		}
	}
	return nil, nil
}

func (s *memoryMonitorStore) Update(_ context.Context, monitor *models.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[monitor.ID]
	if !ok {
		return fmt.Errorf("failed to update monitor %s: %w", monitor.ID, ErrNotFound)
	}
	monitor.CreatedAt = existing.CreatedAt
	monitor.UpdatedAt = time.Now().UTC()
	s.items[monitor.ID] = clone(monitor)
	return nil
}

func (s *memoryMonitorStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]
	if !ok {
		return fmt.Errorf("failed to update monitor %s: %w", id, ErrNotFound)
	}
	m.Active = active
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryMonitorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("failed to delete monitor %s: %w", id, ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *memoryMonitorStore) List(_ context.Context, limit, offset int) ([]*models.Monitor, error) {
	all := s.sorted(false)
	if offset >= len(all) {
		return []*models.Monitor{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (s *memoryMonitorStore) ListActive(_ context.Context) ([]*models.Monitor, error) {
	return s.sorted(true), nil
}

func (s *memoryMonitorStore) sorted(activeOnly bool) []*models.Monitor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Monitor, 0, len(s.items))
	for _, m := range s.items {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type memoryHeartbeatStore struct {
	mu    sync.RWMutex
	items map[string][]*models.Heartbeat
}

func (s *memoryHeartbeatStore) AppendHeartbeat(_ context.Context, heartbeat *models.Heartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if heartbeat.ID == "" {
		heartbeat.ID = uuidutil.New()
	}
	copied := *heartbeat
	s.items[heartbeat.MonitorID] = append(s.items[heartbeat.MonitorID], &copied)
	return nil
}

func (s *memoryHeartbeatStore) LatestHeartbeat(_ context.Context, monitorID string) (*models.Heartbeat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beats := s.items[monitorID]
	if len(beats) == 0 {
		return nil, nil
	}
	latest := *beats[len(beats)-1]
	return &latest, nil
}

// ListHeartbeats возвращает последние heartbeat, новые первыми
func (s *memoryHeartbeatStore) ListHeartbeats(_ context.Context, monitorID string, limit int) ([]*models.Heartbeat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beats := s.items[monitorID]
	out := make([]*models.Heartbeat, 0, len(beats))
	for i := len(beats) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		hb := *beats[i]
		out = append(out, &hb)
	}
	return out, nil
}

func (s *memoryHeartbeatStore) DeleteOlderThan(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, beats := range s.items {
		kept := beats[:0]
		for _, hb := range beats {
			if hb.Time.Before(olderThan) {
				deleted++
				continue
			}
			kept = append(kept, hb)
		}
		s.items[id] = kept
	}
	return deleted, nil
}

type memoryMaintenanceStore struct {
	mu    sync.RWMutex
	items map[string]*models.MaintenanceWindow
}

func (s *memoryMaintenanceStore) Create(_ context.Context, window *models.MaintenanceWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if window.ID == "" {
		window.ID = uuidutil.New()
	}
	window.CreatedAt = time.Now().UTC()
	s.items[window.ID] = clone(window)
	return nil
}

func (s *memoryMaintenanceStore) GetByID(_ context.Context, id string) (*models.MaintenanceWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return clone(w), nil
}

func (s *memoryMaintenanceStore) List(_ context.Context) ([]*models.MaintenanceWindow, error) {
	return s.filter(func(*models.MaintenanceWindow) bool { return true }), nil
}

func (s *memoryMaintenanceStore) ListMaintenanceWindows(_ context.Context, monitorID string, windowIDs []string) ([]*models.MaintenanceWindow, error) {
	return s.filter(func(w *models.MaintenanceWindow) bool {
		if w.Covers(monitorID) {
			return true
		}
		for _, id := range windowIDs {
			if id == w.ID {
				return true
			}
		}
		return false
	}), nil
}

func (s *memoryMaintenanceStore) filter(keep func(*models.MaintenanceWindow) bool) []*models.MaintenanceWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MaintenanceWindow, 0)
	for _, w := range s.items {
		if keep(w) {
			out = append(out, clone(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryMaintenanceStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.items[id]
	if !ok {
		return fmt.Errorf("failed to update maintenance window %s: %w", id, ErrNotFound)
	}
	w.Active = active
	return nil
}

func (s *memoryMaintenanceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("failed to delete maintenance window %s: %w", id, ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

type memoryNotificationStore struct {
	mu    sync.RWMutex
	items map[string]*models.Notification
}

func (s *memoryNotificationStore) Create(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuidutil.New()
	}
	notification.CreatedAt = time.Now().UTC()
	s.items[notification.ID] = clone(notification)
	return nil
}

func (s *memoryNotificationStore) GetByID(_ context.Context, id string) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return clone(n), nil
}

func (s *memoryNotificationStore) List(_ context.Context) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, 0, len(s.items))
	for _, n := range s.items {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListByIDs сохраняет порядок ids, неизвестные id пропускаются
func (s *memoryNotificationStore) ListByIDs(_ context.Context, ids []string) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.items[id]; ok {
			out = append(out, clone(n))
		}
	}
	return out, nil
}

func (s *memoryNotificationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("failed to delete notification %s: %w", id, ErrNotFound)
	}
	delete(s.items, id)
	return nil
}
