package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Vigil/internal/backend/events"
	"Vigil/internal/backend/metrics"
	"Vigil/internal/backend/models"
	"Vigil/internal/engine/heartbeat"

	"code.cloudfoundry.org/clock"
)

// Dependencies зависимости Checker. Hub, Events, Metrics и Notifier необязательны
type Dependencies struct {
	Maintenance MaintenanceChecker
	Probers     ProberSource
	Heartbeats  HeartbeatStore
	Notifier    Notifier
	Hub         HeartbeatSink
	Events      EventPublisher
	Channel     string
	Metrics     *metrics.Metrics
	Clock       clock.Clock
}

// Checker выполняет один цикл проверки монитора:
// обслуживание, проверка, переход состояния, запись, события, уведомления
type Checker struct {
	deps   Dependencies
	clock  clock.Clock
	logger *slog.Logger
}

func New(deps Dependencies, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Checker{
		deps:   deps,
		clock:  clk,
		logger: logger.With("component", "checker"),
	}
}

// Run выполняет цикл. Проверка ограничена timeout, истечение таймаута это неуспешный результат.
// Если ctx отменен до записи, heartbeat не сохраняется и возвращается ошибка ctx
func (c *Checker) Run(ctx context.Context, monitor *models.Monitor, timeout time.Duration) (*models.Heartbeat, error) {
	started := c.clock.Now()
	logger := c.logger.With("monitor_id", monitor.ID, "monitor_type", monitor.Type)

	underMaintenance := false
	if c.deps.Maintenance != nil {
		var err error
		underMaintenance, err = c.deps.Maintenance.IsUnderMaintenance(ctx, monitor, started)
		if err != nil {
			// без окон обслуживания проверка все равно должна пройти
			logger.Warn("failed to evaluate maintenance, probing anyway", "error", err)
			underMaintenance = false
		}
	}

	var outcome *models.ProbeResult
	if !underMaintenance {
		outcome = c.probe(ctx, monitor, timeout)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prev, err := c.deps.Heartbeats.LatestHeartbeat(ctx, monitor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest heartbeat: %w", err)
	}

	hb, err := heartbeat.Next(monitor, prev, outcome, underMaintenance, c.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.deps.Heartbeats.AppendHeartbeat(ctx, hb); err != nil {
		return nil, fmt.Errorf("failed to append heartbeat: %w", err)
	}

	logger.Debug("check cycle completed",
		"status", hb.Status.String(),
		"important", hb.Important,
		"retries", hb.Retries,
		"message", hb.Message,
	)

	c.publish(ctx, monitor, hb)

	if hb.ShouldNotify() && c.deps.Notifier != nil {
		// heartbeat уже записан, уведомление доходит даже если монитор остановили
		err := c.deps.Notifier.Dispatch(context.WithoutCancel(ctx), monitor, hb)
		if err != nil {
			logger.Error("failed to dispatch notifications", "error", err, "status", hb.Status.String())
		}
		if c.deps.Metrics != nil {
			c.deps.Metrics.ObserveDispatch(err)
		}
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveCycle(monitor, hb, c.clock.Since(started))
	}
	return hb, nil
}

func (c *Checker) probe(ctx context.Context, monitor *models.Monitor, timeout time.Duration) (result *models.ProbeResult) {
	prober, err := c.deps.Probers.GetProber(monitor.Type)
	if err != nil {
		return models.NewErrorResult(err)
	}

	probeCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("prober panicked", "monitor_id", monitor.ID, "panic", r)
			result = models.NewErrorResult(fmt.Errorf("prober panic: %v", r))
		}
	}()

	result, err = prober.Probe(probeCtx, monitor)
	if ctx.Err() == nil && errors.Is(probeCtx.Err(), context.DeadlineExceeded) && (err != nil || result == nil || !result.Success) {
		return models.NewErrorResult(fmt.Errorf("timeout after %s", timeout))
	}
	if err != nil {
		return models.NewErrorResult(err)
	}
	if result == nil {
		return models.NewErrorResult(errors.New("prober returned no result"))
	}
	return result
}

func (c *Checker) publish(ctx context.Context, monitor *models.Monitor, hb *models.Heartbeat) {
	if c.deps.Hub != nil {
		c.deps.Hub.Publish(hb)
	}
	if c.deps.Events != nil {
		event := events.NewHeartbeatEvent(monitor, hb)
		if err := c.deps.Events.Publish(ctx, c.deps.Channel, event); err != nil {
			c.logger.Warn("failed to publish heartbeat event",
				"error", err,
				"monitor_id", monitor.ID,
				"channel", c.deps.Channel,
			)
		}
	}
}
