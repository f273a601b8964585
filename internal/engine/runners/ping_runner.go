package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/shared/constants"

	probing "github.com/prometheus-community/pro-bing"
)

type PingRunner struct {
	timeout time.Duration
}

func NewPingRunner() *PingRunner {
	return &PingRunner{
		timeout: constants.PingTimeout,
	}
}

func (r *PingRunner) Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	settings := monitor.Ping
	if settings == nil {
		return nil, errors.New("ping settings are missing")
	}

	pinger, err := probing.NewPinger(settings.Hostname)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", settings.Hostname, err)
	}

	count := settings.Count
	if count <= 0 {
		count = 1
	}
	pinger.Count = count
	pinger.Timeout = remaining(ctx, r.timeout)
	pinger.SetPrivileged(settings.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return nil, fmt.Errorf("no reply from %s (%d packets sent)", settings.Hostname, stats.PacketsSent)
	}

	message := fmt.Sprintf("%d/%d packets received, avg %s", stats.PacketsRecv, stats.PacketsSent, stats.AvgRtt.Round(time.Microsecond))
	return models.NewSuccessResult(stats.AvgRtt, message), nil
}
