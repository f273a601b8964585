package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"Vigil/internal/backend/models"

	"code.cloudfoundry.org/clock"
)

var ErrNoBeacon = errors.New("No heartbeat in the time window")

// Beacon входящий сигнал push монитора
type Beacon struct {
	Received time.Time
	Status   models.Status
	Message  string
	Ping     *float64
}

// PushRunner не ходит в сеть, а проверяет был ли сигнал за последний интервал
type PushRunner struct {
	clock   clock.Clock
	mu      sync.RWMutex
	beacons map[string]Beacon
}

func NewPushRunner(clk clock.Clock) *PushRunner {
	return &PushRunner{
		clock:   clk,
		beacons: make(map[string]Beacon),
	}
}

// Record сохраняет последний сигнал монитора
func (r *PushRunner) Record(monitorID string, beacon Beacon) {
	if beacon.Received.IsZero() {
		beacon.Received = r.clock.Now()
	}
	r.mu.Lock()
	r.beacons[monitorID] = beacon
	r.mu.Unlock()
}

// Forget удаляет сигналы монитора
func (r *PushRunner) Forget(monitorID string) {
	r.mu.Lock()
	delete(r.beacons, monitorID)
	r.mu.Unlock()
}

func (r *PushRunner) Last(monitorID string) (Beacon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beacons[monitorID]
	return b, ok
}

func (r *PushRunner) Probe(_ context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	beacon, ok := r.Last(monitor.ID)
	if !ok {
		return nil, ErrNoBeacon
	}

	window := time.Duration(monitor.Interval) * time.Second
	if monitor.Schedule != nil {
		window = monitor.Schedule.IntervalDuration()
	}
	if r.clock.Now().Sub(beacon.Received) > window {
		return nil, ErrNoBeacon
	}

	message := beacon.Message
	if message == "" {
		message = "OK"
	}
	result := &models.ProbeResult{
		Success: beacon.Status != models.StatusDown,
		Latency: beacon.Ping,
		Message: message,
	}
	return result, nil
}
