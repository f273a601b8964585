package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type NotificationType string

const (
	NotificationWebhook NotificationType = "webhook"
	NotificationRedis   NotificationType = "redis"
)

var ErrInvalidNotification = errors.New("invalid notification")

type Notification struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Type      NotificationType `json:"type" yaml:"type"`
	Active    bool             `json:"active" yaml:"-"`
	IsDefault bool             `json:"is_default" yaml:"is_default"`
	Template  string           `json:"template,omitempty" yaml:"template,omitempty"`

	Webhook *WebhookSettings `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	Redis   *RedisSettings   `json:"redis,omitempty" yaml:"redis,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

type WebhookSettings struct {
	URL          string            `json:"url" yaml:"url"`
	Method       string            `json:"method" yaml:"method"`
	ContentType  string            `json:"content_type" yaml:"content_type"` // json, form, custom
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyTemplate string            `json:"body_template,omitempty" yaml:"body_template,omitempty"`
}

type RedisSettings struct {
	Channel string `json:"channel" yaml:"channel"`
}

func (n *Notification) ApplyDefaults() {
	if n.Webhook != nil {
		if n.Webhook.Method == "" {
			n.Webhook.Method = "POST"
		}
		if n.Webhook.ContentType == "" {
			n.Webhook.ContentType = "json"
		}
	}
	if n.Redis != nil && n.Redis.Channel == "" {
		n.Redis.Channel = "vigil:notifications"
	}
}

func (n *Notification) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidNotification)
	}

	switch n.Type {
	case NotificationWebhook:
		if n.Webhook == nil {
			return fmt.Errorf("%w: webhook settings are required", ErrInvalidNotification)
		}
		u, err := url.Parse(n.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: invalid webhook url %q", ErrInvalidNotification, n.Webhook.URL)
		}
		switch n.Webhook.ContentType {
		case "", "json", "form":
		case "custom":
			if n.Webhook.BodyTemplate == "" {
				return fmt.Errorf("%w: custom webhook requires body_template", ErrInvalidNotification)
			}
		default:
			return fmt.Errorf("%w: unknown content type %q", ErrInvalidNotification, n.Webhook.ContentType)
		}
	case NotificationRedis:
		if n.Redis == nil {
			return fmt.Errorf("%w: redis settings are required", ErrInvalidNotification)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Type)
	}
	return nil
}
