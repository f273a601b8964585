package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/engine/heartbeat"
	"Vigil/internal/shared/constants"
	"Vigil/pkg/keylock"

	"code.cloudfoundry.org/clock"
)

var ErrAlreadyScheduled = errors.New("monitor is already scheduled")

// Runner один цикл проверки, см. checker.Checker
type Runner interface {
	Run(ctx context.Context, monitor *models.Monitor, timeout time.Duration) (*models.Heartbeat, error)
}

// Observer получает число запущенных мониторов, см. metrics.Metrics
type Observer interface {
	SetScheduled(n int)
}

type Config struct {
	MaxJitter    time.Duration
	BaseTick     time.Duration
	TimeoutRatio float64
}

// Scheduler держит по одной горутине на монитор. Общей блокировки на циклы нет,
// мьютекс защищает только таблицу таймлайнов
type Scheduler struct {
	runner   Runner
	clock    clock.Clock
	config   Config
	observer Observer
	logger   *slog.Logger

	mu        sync.Mutex
	timelines map[string]*timeline

	// ops упорядочивает Start, Stop и Reschedule одного монитора
	ops *keylock.Mutex
}

type timeline struct {
	monitor *models.Monitor
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(runner Runner, clk clock.Clock, cfg Config, observer Observer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseTick <= 0 {
		cfg.BaseTick = time.Second
	}
	if cfg.TimeoutRatio <= 0 || cfg.TimeoutRatio > 1 {
		cfg.TimeoutRatio = constants.ProbeTimeoutRatio
	}
	return &Scheduler{
		runner:    runner,
		clock:     clk,
		config:    cfg,
		observer:  observer,
		logger:    logger.With("component", "scheduler"),
		timelines: make(map[string]*timeline),
		ops:       keylock.New(),
	}
}

// Start запускает таймлайн монитора. Монитор копируется, дальнейшие изменения
// вызывающего не влияют на расписание до Reschedule
func (s *Scheduler) Start(monitor *models.Monitor) error {
	unlock := s.ops.Lock(monitor.ID)
	defer unlock()
	return s.start(monitor)
}

func (s *Scheduler) start(monitor *models.Monitor) error {
	snapshot := *monitor

	var anchor time.Time
	if snapshot.Schedule != nil {
		var err error
		anchor, err = snapshot.Schedule.Anchor()
		if err != nil {
			return fmt.Errorf("failed to schedule monitor %s: %w", snapshot.ID, err)
		}
		if snapshot.Schedule.Interval < 1 {
			return fmt.Errorf("failed to schedule monitor %s: schedule interval must be positive", snapshot.ID)
		}
	}

	s.mu.Lock()
	if _, exists := s.timelines[snapshot.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule monitor %s: %w", snapshot.ID, ErrAlreadyScheduled)
	}
	ctx, cancel := context.WithCancel(context.Background())
	tl := &timeline{monitor: &snapshot, cancel: cancel, done: make(chan struct{})}
	s.timelines[snapshot.ID] = tl
	count := len(s.timelines)
	s.mu.Unlock()

	s.observe(count)

	go func() {
		defer close(tl.done)
		defer s.detach(tl)

		if snapshot.Schedule != nil {
			s.runRecurring(ctx, tl, anchor)
			return
		}
		s.runFixed(ctx, tl)
	}()

	s.logger.Info("monitor scheduled",
		"monitor_id", snapshot.ID,
		"name", snapshot.Name,
		"interval", snapshot.Interval,
		"recurring", snapshot.Schedule != nil,
	)
	return nil
}

// Stop отменяет текущий цикл и ждет завершения горутины.
// После возврата heartbeat этого монитора больше не записываются
func (s *Scheduler) Stop(monitorID string) bool {
	unlock := s.ops.Lock(monitorID)
	defer unlock()
	return s.stop(monitorID)
}

func (s *Scheduler) stop(monitorID string) bool {
	s.mu.Lock()
	tl, ok := s.timelines[monitorID]
	if ok {
		delete(s.timelines, monitorID)
	}
	count := len(s.timelines)
	s.mu.Unlock()

	if !ok {
		return false
	}

	tl.cancel()
	<-tl.done
	s.observe(count)
	s.logger.Info("monitor unscheduled", "monitor_id", monitorID)
	return true
}

// Reschedule атомарен для монитора: параллельные вызовы выполняются по очереди,
// последний оставляет свою копию монитора
func (s *Scheduler) Reschedule(monitor *models.Monitor) error {
	unlock := s.ops.Lock(monitor.ID)
	defer unlock()

	s.stop(monitor.ID)
	return s.start(monitor)
}

func (s *Scheduler) StopAll() {
	s.mu.Lock()
	all := make([]*timeline, 0, len(s.timelines))
	for id, tl := range s.timelines {
		all = append(all, tl)
		delete(s.timelines, id)
	}
	s.mu.Unlock()

	for _, tl := range all {
		tl.cancel()
	}
	for _, tl := range all {
		<-tl.done
	}
	s.observe(0)
	s.logger.Info("all monitors unscheduled", "count", len(all))
}

func (s *Scheduler) Running(monitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timelines[monitorID]
	return ok
}

func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timelines)
}

// detach убирает таймлайн, который завершился сам
func (s *Scheduler) detach(tl *timeline) {
	s.mu.Lock()
	current, ok := s.timelines[tl.monitor.ID]
	if ok && current == tl {
		delete(s.timelines, tl.monitor.ID)
	}
	count := len(s.timelines)
	s.mu.Unlock()

	if ok && current == tl {
		s.observe(count)
	}
}

func (s *Scheduler) observe(count int) {
	if s.observer != nil {
		s.observer.SetScheduled(count)
	}
}

// runFixed первый цикл после случайной задержки, дальше каждый интервал
// от предыдущего запланированного запуска. Пропущенные запуски не накапливаются
func (s *Scheduler) runFixed(ctx context.Context, tl *timeline) {
	monitor := tl.monitor
	interval := monitor.CurrentInterval(models.StatusUp)
	next := s.clock.Now().Add(s.jitter(interval))

	for {
		if !s.sleepUntil(ctx, next) {
			return
		}
		fired := next

		hb, stop := s.cycle(ctx, monitor, constants.ProbeTimeout(interval, s.config.TimeoutRatio))
		if stop {
			return
		}
		if hb != nil {
			interval = monitor.CurrentInterval(hb.Status)
		}

		next = fired.Add(interval)
		if now := s.clock.Now(); next.Before(now) {
			missed := now.Sub(next) / interval
			next = next.Add(missed * interval)
			if next.Before(now) {
				next = next.Add(interval)
			}
			s.logger.Debug("dropping missed cycles",
				"monitor_id", monitor.ID,
				"missed", int64(missed)+1,
			)
		}
	}
}

// runRecurring базовый тикер и проверка слота: цикл запускается когда номер слота
// от якоря вырос. Решение принимается по текущему времени, а не по счетчику тиков
func (s *Scheduler) runRecurring(ctx context.Context, tl *timeline, anchor time.Time) {
	monitor := tl.monitor
	interval := monitor.Schedule.IntervalDuration()
	timeout := constants.ProbeTimeout(interval, s.config.TimeoutRatio)

	ticker := s.clock.NewTicker(s.config.BaseTick)
	defer ticker.Stop()

	lastSlot := int64(-1)
	for {
		if slot := SlotIndex(anchor, interval, s.clock.Now()); slot >= 0 && slot > lastSlot {
			lastSlot = slot
			if _, stop := s.cycle(ctx, monitor, timeout); stop {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
	}
}

// SlotIndex floor((now - anchor) / interval), -1 до якоря
func SlotIndex(anchor time.Time, interval time.Duration, now time.Time) int64 {
	if interval <= 0 || now.Before(anchor) {
		return -1
	}
	return int64(now.Sub(anchor) / interval)
}

// cycle возвращает stop=true когда таймлайн нужно завершить
func (s *Scheduler) cycle(ctx context.Context, monitor *models.Monitor, timeout time.Duration) (hb *models.Heartbeat, stop bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("check cycle panicked", "monitor_id", monitor.ID, "panic", r)
			hb, stop = nil, false
		}
	}()

	hb, err := s.runner.Run(ctx, monitor, timeout)
	switch {
	case err == nil:
		return hb, false
	case ctx.Err() != nil:
		return nil, true
	case errors.Is(err, heartbeat.ErrNonMonotonic):
		s.logger.Error("stopping monitor timeline", "monitor_id", monitor.ID, "error", err)
		return nil, true
	default:
		s.logger.Warn("check cycle failed", "monitor_id", monitor.ID, "error", err)
		return nil, false
	}
}

func (s *Scheduler) sleepUntil(ctx context.Context, at time.Time) bool {
	wait := at.Sub(s.clock.Now())
	if wait <= 0 {
		return ctx.Err() == nil
	}

	timer := s.clock.NewTimer(wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C():
		return true
	}
}

// jitter случайная задержка в [0, min(MaxJitter, interval))
func (s *Scheduler) jitter(interval time.Duration) time.Duration {
	limit := min(s.config.MaxJitter, interval)
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}
