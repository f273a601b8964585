package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/shared/constants"
)

type TCPRunner struct {
	timeout time.Duration
}

func NewTCPRunner() *TCPRunner {
	return &TCPRunner{
		timeout: constants.TCPTimeout,
	}
}

func (r *TCPRunner) Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	settings := monitor.Port
	if settings == nil {
		return nil, errors.New("port settings are missing")
	}

	address := net.JoinHostPort(settings.Hostname, strconv.Itoa(settings.Port))

	ctx, cancel := withDefaultTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	connectTime := time.Since(start)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("connection to %s timed out", address)
		}
		return nil, fmt.Errorf("connection to %s failed: %w", address, err)
	}
	defer conn.Close()

	return models.NewSuccessResult(connectTime, fmt.Sprintf("Connected to %s", address)), nil
}
