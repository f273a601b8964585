package models

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"Vigil/internal/shared/constants"
)

type MonitorType string

const (
	MonitorTypeHTTP   MonitorType = "http"
	MonitorTypePort   MonitorType = "port"
	MonitorTypePing   MonitorType = "ping"
	MonitorTypeMQTT   MonitorType = "mqtt"
	MonitorTypePush   MonitorType = "push"
	MonitorTypeRadius MonitorType = "radius"
	MonitorTypeDNS    MonitorType = "dns"
)

var ErrInvalidMonitor = errors.New("invalid monitor")

// Monitor настроенная цель проверки. Scheduler только читает эту структуру
type Monitor struct {
	ID             string      `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	Type           MonitorType `json:"type" yaml:"type"`
	Interval       int         `json:"interval" yaml:"interval"`             // в секундах
	RetryInterval  int         `json:"retry_interval" yaml:"retry_interval"` // в секундах, пока монитор в PENDING
	MaxRetries     int         `json:"max_retries" yaml:"max_retries"`
	ResendInterval int         `json:"resend_interval" yaml:"resend_interval"` // 0 каждый цикл, N каждый N-ый, <0 никогда
	UpsideDown     bool        `json:"upside_down" yaml:"upside_down"`
	Active         bool        `json:"active" yaml:"-"`

	HTTP   *HTTPSettings   `json:"http,omitempty" yaml:"http,omitempty"`
	Port   *PortSettings   `json:"port,omitempty" yaml:"port,omitempty"`
	Ping   *PingSettings   `json:"ping,omitempty" yaml:"ping,omitempty"`
	MQTT   *MQTTSettings   `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
	Push   *PushSettings   `json:"push,omitempty" yaml:"push,omitempty"`
	Radius *RadiusSettings `json:"radius,omitempty" yaml:"radius,omitempty"`
	DNS    *DNSSettings    `json:"dns,omitempty" yaml:"dns,omitempty"`

	Schedule *RecurringSchedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`

	NotificationIDs []string `json:"notification_ids" yaml:"notifications"`
	MaintenanceIDs  []string `json:"maintenance_ids" yaml:"maintenance"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// RecurringSchedule якорь + интервал + таймзона для мониторов,
// которые запускаются не по фиксированному интервалу
type RecurringSchedule struct {
	StartAt  time.Time `json:"start_at" yaml:"start_at"`
	Timezone string    `json:"timezone" yaml:"timezone"`
	Interval int       `json:"interval" yaml:"interval"` // в секундах
}

// Anchor возвращает StartAt, прочитанный как настенное время в Timezone
func (s *RecurringSchedule) Anchor() (time.Time, error) {
	loc, err := LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := s.StartAt.Date()
	h, mi, sec := s.StartAt.Clock()
	return time.Date(y, mo, d, h, mi, sec, s.StartAt.Nanosecond(), loc), nil
}

// IntervalDuration интервал расписания
func (s *RecurringSchedule) IntervalDuration() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

// LoadLocation пустая таймзона означает UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// ApplyDefaults заполняет незаданные поля значениями по умолчанию
func (m *Monitor) ApplyDefaults() {
	if m.Interval <= 0 {
		m.Interval = constants.DefaultIntervalSeconds
	}
	if m.RetryInterval <= 0 {
		m.RetryInterval = m.Interval
	}
	if m.MaxRetries < 0 {
		m.MaxRetries = 0
	}

	switch m.Type {
	case MonitorTypeHTTP:
		if m.HTTP != nil {
			m.HTTP.applyDefaults()
		}
	case MonitorTypeMQTT:
		if m.MQTT != nil && m.MQTT.Port == 0 {
			m.MQTT.Port = 1883
		}
	case MonitorTypeDNS:
		if m.DNS != nil {
			m.DNS.applyDefaults()
		}
	case MonitorTypeRadius:
		if m.Radius != nil {
			m.Radius.applyDefaults()
		}
	case MonitorTypePing:
		if m.Ping != nil && m.Ping.Count <= 0 {
			m.Ping.Count = 1
		}
	}
}

// Validate проверяет что задана ровно одна секция настроек и она совпадает с типом
func (m *Monitor) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMonitor)
	}
	if m.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1 second", ErrInvalidMonitor)
	}
	if m.RetryInterval < 1 {
		return fmt.Errorf("%w: retry interval must be at least 1 second", ErrInvalidMonitor)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidMonitor)
	}

	set := 0
	for _, present := range []bool{
		m.HTTP != nil, m.Port != nil, m.Ping != nil, m.MQTT != nil,
		m.Push != nil, m.Radius != nil, m.DNS != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one settings block is required, got %d", ErrInvalidMonitor, set)
	}

	var settings interface{ validate() error }
	switch m.Type {
	case MonitorTypeHTTP:
		if m.HTTP != nil {
			settings = m.HTTP
		}
	case MonitorTypePort:
		if m.Port != nil {
			settings = m.Port
		}
	case MonitorTypePing:
		if m.Ping != nil {
			settings = m.Ping
		}
	case MonitorTypeMQTT:
		if m.MQTT != nil {
			settings = m.MQTT
		}
	case MonitorTypePush:
		if m.Push != nil {
			settings = m.Push
		}
	case MonitorTypeRadius:
		if m.Radius != nil {
			settings = m.Radius
		}
	case MonitorTypeDNS:
		if m.DNS != nil {
			settings = m.DNS
		}
	default:
		return fmt.Errorf("%w: unknown monitor type %q", ErrInvalidMonitor, m.Type)
	}
	if settings == nil {
		return fmt.Errorf("%w: %s settings are required", ErrInvalidMonitor, m.Type)
	}
	if err := settings.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMonitor, m.Type, err)
	}

	if m.Schedule != nil {
		if m.Schedule.Interval < 1 {
			return fmt.Errorf("%w: schedule interval must be at least 1 second", ErrInvalidMonitor)
		}
		if m.Schedule.StartAt.IsZero() {
			return fmt.Errorf("%w: schedule start_at is required", ErrInvalidMonitor)
		}
		if _, err := LoadLocation(m.Schedule.Timezone); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMonitor, err)
		}
	}

	return nil
}

// CurrentInterval интервал до следующего цикла с учетом статуса последнего heartbeat
func (m *Monitor) CurrentInterval(last Status) time.Duration {
	if last == StatusPending && m.RetryInterval > 0 {
		return time.Duration(m.RetryInterval) * time.Second
	}
	return time.Duration(m.Interval) * time.Second
}

// Hostname хост монитора, если у типа он есть
func (m *Monitor) Hostname() string {
	switch {
	case m.Port != nil:
		return m.Port.Hostname
	case m.Ping != nil:
		return m.Ping.Hostname
	case m.MQTT != nil:
		return m.MQTT.Hostname
	case m.Radius != nil:
		return m.Radius.Hostname
	case m.DNS != nil:
		return m.DNS.Hostname
	}
	return ""
}

// Address адрес для шаблонов уведомлений (hostnameOrURL)
func (m *Monitor) Address() string {
	if m == nil {
		return ""
	}
	switch m.Type {
	case MonitorTypePing:
		return m.Hostname()
	case MonitorTypePort:
		if m.Port == nil {
			return ""
		}
		if m.Port.Port > 0 {
			return net.JoinHostPort(m.Port.Hostname, strconv.Itoa(m.Port.Port))
		}
		return m.Port.Hostname
	case MonitorTypePush:
		return "Heartbeat"
	case MonitorTypeHTTP:
		if m.HTTP == nil {
			return ""
		}
		return m.HTTP.URL
	default:
		return m.Hostname()
	}
}

// PushToken токен push монитора или пустая строка
func (m *Monitor) PushToken() string {
	if m.Push == nil {
		return ""
	}
	return m.Push.Token
}

// Redacted копия монитора без секретов, для уведомлений и событий
func (m *Monitor) Redacted() *Monitor {
	if m == nil {
		return nil
	}
	out := *m
	if m.HTTP != nil {
		http := *m.HTTP
		http.BasicAuthPassword = ""
		if http.OAuth != nil {
			oauth := *http.OAuth
			oauth.ClientSecret = ""
			oauth.PrivateKey = ""
			http.OAuth = &oauth
		}
		out.HTTP = &http
	}
	if m.MQTT != nil {
		mqtt := *m.MQTT
		mqtt.Password = ""
		out.MQTT = &mqtt
	}
	if m.Radius != nil {
		radius := *m.Radius
		radius.Secret = ""
		radius.Password = ""
		out.Radius = &radius
	}
	if m.Push != nil {
		out.Push = &PushSettings{}
	}
	return &out
}
