package runner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/shared/constants"
	"Vigil/pkg/uuidutil"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var mqttSchemePattern = regexp.MustCompile(`^(?:http|mqtt|ws)s?://`)

type MQTTRunner struct {
	timeout time.Duration
}

func NewMQTTRunner() *MQTTRunner {
	return &MQTTRunner{
		timeout: constants.ProbeTimeout(constants.MQTTDefaultInterval, constants.ProbeTimeoutRatio),
	}
}

// BrokerURL адрес брокера scheme://host:port без пути
func BrokerURL(hostname string, port int) string {
	if !mqttSchemePattern.MatchString(hostname) {
		hostname = "mqtt://" + hostname
	}
	return hostname + ":" + strconv.Itoa(port)
}

// pahoBroker переводит http(s) схемы в websocket, остальные paho понимает сам
func pahoBroker(brokerURL string) (string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return "", fmt.Errorf("invalid broker url %q: %w", brokerURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

func (r *MQTTRunner) Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	settings := monitor.MQTT
	if settings == nil {
		return nil, errors.New("mqtt settings are missing")
	}

	broker, err := pahoBroker(BrokerURL(settings.Hostname, settings.Port))
	if err != nil {
		return nil, err
	}

	timeout := remaining(ctx, r.timeout)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("vigil-" + uuidutil.New()[:8]).
		SetConnectTimeout(timeout).
		SetAutoReconnect(false).
		SetConnectRetry(false)
	if settings.Username != "" {
		opts.SetUsername(settings.Username)
		opts.SetPassword(settings.Password)
	}

	start := time.Now()
	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", broker, err)
	}
	defer client.Disconnect(250)

	messages := make(chan string, 1)
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case messages <- string(msg.Payload()):
		default:
		}
	}
	if err := waitToken(ctx, client.Subscribe(settings.Topic, 0, handler), timeout); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", settings.Topic, err)
	}

	waitCtx, cancel := withDefaultTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-waitCtx.Done():
		return nil, fmt.Errorf("no message received on %s", settings.Topic)
	case payload := <-messages:
		elapsed := time.Since(start)
		if settings.SuccessMessage != "" && !strings.Contains(payload, settings.SuccessMessage) {
			return models.NewFailureResult(elapsed, fmt.Sprintf("Message received but does not contain %q: %s", settings.SuccessMessage, truncate(payload, 200))), nil
		}
		return models.NewSuccessResult(elapsed, fmt.Sprintf("Topic: %s; Message: %s", settings.Topic, truncate(payload, 200))), nil
	}
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return errors.New("timed out")
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
