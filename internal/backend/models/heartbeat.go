package models

import (
	"fmt"
	"time"
)

// Status статус heartbeat, числовые значения совпадают с хранимыми в базе
type Status int

const (
	StatusDown        Status = 0
	StatusUp          Status = 1
	StatusPending     Status = 2
	StatusMaintenance Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusDown:
		return "DOWN"
	case StatusUp:
		return "UP"
	case StatusPending:
		return "PENDING"
	case StatusMaintenance:
		return "MAINTENANCE"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Title человекочитаемый статус для уведомлений
func (s Status) Title() string {
	switch s {
	case StatusDown:
		return "Down"
	case StatusUp:
		return "Up"
	case StatusPending:
		return "Pending"
	case StatusMaintenance:
		return "Maintenance"
	default:
		return s.String()
	}
}

// Heartbeat неизменяемая запись об одном завершенном цикле проверки
type Heartbeat struct {
	ID        string    `json:"id"`
	MonitorID string    `json:"monitor_id"`
	Time      time.Time `json:"time"`
	Status    Status    `json:"status"`
	Latency   *float64  `json:"latency"` // в миллисекундах
	Message   string    `json:"msg"`
	Important bool      `json:"important"`
	Resend    bool      `json:"resend"`
	Duration  int       `json:"duration"` // секунд с предыдущего heartbeat
	Retries   int       `json:"retries"`
	DownCount int       `json:"down_count"`
	Settled   Status    `json:"settled"` // последний статус не PENDING
}

// ShouldNotify нужно ли отправлять уведомление по этому heartbeat
func (h *Heartbeat) ShouldNotify() bool {
	return h.Important || h.Resend
}

// ProbeResult результат одной попытки проверки
type ProbeResult struct {
	Success bool     `json:"success"`
	Latency *float64 `json:"latency"`
	Message string   `json:"message"`
}

func NewSuccessResult(latency time.Duration, message string) *ProbeResult {
	ms := float64(latency.Microseconds()) / 1000
	return &ProbeResult{
		Success: true,
		Latency: &ms,
		Message: message,
	}
}

func NewErrorResult(err error) *ProbeResult {
	return &ProbeResult{
		Success: false,
		Message: err.Error(),
	}
}

// NewFailureResult неуспешная проверка, для которой задержка все же измерена
func NewFailureResult(latency time.Duration, message string) *ProbeResult {
	ms := float64(latency.Microseconds()) / 1000
	return &ProbeResult{
		Success: false,
		Latency: &ms,
		Message: message,
	}
}

// MonitorStats доступность монитора, считается по полю Duration
type MonitorStats struct {
	MonitorID    string  `json:"monitor_id"`
	Heartbeats   int     `json:"heartbeats"`
	UpSeconds    int     `json:"up_seconds"`
	DownSeconds  int     `json:"down_seconds"`
	Uptime       float64 `json:"uptime"` // процент
	AverageMs    float64 `json:"average_ms"`
	CurrentState string  `json:"current_state"`
}

type MonitorWithStatus struct {
	*Monitor
	Latest *Heartbeat `json:"latest,omitempty"`
}
