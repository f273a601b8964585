package events

import (
	"log/slog"
	"sync"

	"Vigil/internal/backend/models"
)

// AllMonitors подписка на heartbeat всех мониторов
const AllMonitors = "*"

type Subscription struct {
	MonitorID string
	C         <-chan *models.Heartbeat

	ch chan *models.Heartbeat
}

// Hub раздает heartbeat подписчикам websocket. Медленный подписчик теряет
// сообщения, но не блокирует цикл проверки
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger.With("component", "events_hub"),
	}
}

func (h *Hub) Subscribe(monitorID string, buffer int) *Subscription {
	if monitorID == "" {
		monitorID = AllMonitors
	}
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan *models.Heartbeat, buffer)
	sub := &Subscription{MonitorID: monitorID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[monitorID] == nil {
		h.subs[monitorID] = make(map[*Subscription]struct{})
	}
	h.subs[monitorID][sub] = struct{}{}
	return sub
}

// Unsubscribe закрывает канал подписки, повторный вызов безопасен
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.MonitorID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.MonitorID)
	}
	close(sub.ch)
}

func (h *Hub) Publish(heartbeat *models.Heartbeat) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range []string{heartbeat.MonitorID, AllMonitors} {
		for sub := range h.subs[key] {
			select {
			case sub.ch <- heartbeat:
			default:
				h.logger.Warn("dropping heartbeat for slow subscriber", "monitor_id", heartbeat.MonitorID)
			}
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// HeartbeatEvent сообщение о heartbeat для внешних подписчиков (redis)
type HeartbeatEvent struct {
	MonitorID   string             `json:"monitor_id"`
	MonitorName string             `json:"monitor_name"`
	MonitorType models.MonitorType `json:"monitor_type"`
	Heartbeat   *models.Heartbeat  `json:"heartbeat"`
}

func NewHeartbeatEvent(monitor *models.Monitor, heartbeat *models.Heartbeat) HeartbeatEvent {
	return HeartbeatEvent{
		MonitorID:   monitor.ID,
		MonitorName: monitor.Name,
		MonitorType: monitor.Type,
		Heartbeat:   heartbeat,
	}
}
