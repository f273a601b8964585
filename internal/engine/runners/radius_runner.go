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

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

type RadiusRunner struct {
	client *radius.Client
}

func NewRadiusRunner() *RadiusRunner {
	return &RadiusRunner{
		// повторы считаем сами, чтобы каждая попытка имела свой таймаут
		client: &radius.Client{Retry: 0},
	}
}

// buildAccessRequest Access-Request с User-Name, User-Password, Calling/Called-Station-Id
func buildAccessRequest(settings *models.RadiusSettings) (*radius.Packet, error) {
	packet := radius.New(radius.CodeAccessRequest, []byte(settings.Secret))
	if err := rfc2865.UserName_SetString(packet, settings.Username); err != nil {
		return nil, fmt.Errorf("failed to set User-Name: %w", err)
	}
	if err := rfc2865.UserPassword_SetString(packet, settings.Password); err != nil {
		return nil, fmt.Errorf("failed to set User-Password: %w", err)
	}
	if settings.CallingStationID != "" {
		if err := rfc2865.CallingStationID_SetString(packet, settings.CallingStationID); err != nil {
			return nil, fmt.Errorf("failed to set Calling-Station-Id: %w", err)
		}
	}
	if settings.CalledStationID != "" {
		if err := rfc2865.CalledStationID_SetString(packet, settings.CalledStationID); err != nil {
			return nil, fmt.Errorf("failed to set Called-Station-Id: %w", err)
		}
	}
	return packet, nil
}

func (r *RadiusRunner) Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	settings := monitor.Radius
	if settings == nil {
		return nil, errors.New("radius settings are missing")
	}

	port := settings.Port
	if port == 0 {
		port = constants.RadiusDefaultPort
	}
	timeout := time.Duration(settings.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = constants.RadiusTimeout
	}
	attempts := 1 + settings.Retries
	if settings.Retries < 0 {
		attempts = 1
	}

	address := net.JoinHostPort(settings.Hostname, strconv.Itoa(port))

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		packet, err := buildAccessRequest(settings)
		if err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		response, err := r.client.Exchange(attemptCtx, packet, address)
		elapsed := time.Since(start)
		cancel()

		if err == nil {
			if response.Code == radius.CodeAccessAccept {
				return models.NewSuccessResult(elapsed, response.Code.String()), nil
			}
			return models.NewFailureResult(elapsed, response.Code.String()), nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("radius request to %s failed: %w", address, lastErr)
}
