package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Vigil/internal/backend/models"

	"github.com/hashicorp/go-retryablehttp"
)

type WebhookConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type WebhookProvider struct {
	client *retryablehttp.Client
}

func NewWebhookProvider(cfg WebhookConfig, logger *slog.Logger) *WebhookProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.Retries
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	client.Logger = logger.With("component", "webhook")
	// последний ответ возвращается с телом, чтобы включить его в текст ошибки
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &WebhookProvider{client: client}
}

func (p *WebhookProvider) Type() models.NotificationType {
	return models.NotificationWebhook
}

func (p *WebhookProvider) Send(ctx context.Context, notification *models.Notification, msg Message) error {
	settings := notification.Webhook
	if settings == nil {
		return NormalizeError("webhook settings are missing", nil)
	}

	body, contentType, err := buildWebhookBody(settings, msg)
	if err != nil {
		return NormalizeError(err.Error(), nil)
	}

	method := settings.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, settings.URL, body)
	if err != nil {
		return NormalizeError(err.Error(), nil)
	}
	req.Header.Set("Content-Type", contentType)
	for key, value := range settings.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return NormalizeError(err.Error(), nil)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NormalizeError(fmt.Sprintf("Request failed with status code %d", resp.StatusCode), data)
	}
	return nil
}

func buildWebhookBody(settings *models.WebhookSettings, msg Message) ([]byte, string, error) {
	switch settings.ContentType {
	case "form":
		encoded, err := json.Marshal(newPayload(msg))
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode payload: %w", err)
		}
		form := url.Values{"data": {string(encoded)}}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	case "custom":
		rendered, err := Render(settings.BodyTemplate, msg.Text, msg.Monitor, msg.Heartbeat)
		if err != nil {
			return nil, "", err
		}
		contentType := "text/plain; charset=utf-8"
		if trimmed := strings.TrimSpace(rendered); json.Valid([]byte(trimmed)) && trimmed != "" {
			contentType = "application/json"
		}
		return []byte(rendered), contentType, nil
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(newPayload(msg)); err != nil {
			return nil, "", fmt.Errorf("failed to encode payload: %w", err)
		}
		return buf.Bytes(), "application/json", nil
	}
}
