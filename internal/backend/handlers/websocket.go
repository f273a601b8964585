package handlers

import (
	"net/http"
	"time"

	"Vigil/internal/backend/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно ограничить домены
	},
}

// MonitorWebSocket поток heartbeat монитора. id "*" означает все мониторы
func (h *Handlers) MonitorWebSocket(c *gin.Context) {
	monitorID := c.Param("id")
	if monitorID != events.AllMonitors {
		if _, err := h.monitorService.Get(c.Request.Context(), monitorID); err != nil {
			h.respondError(c, err, "get_failed")
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade to websocket", "error", err, "monitor_id", monitorID)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(monitorID, 32)
	defer h.hub.Unsubscribe(sub)

	h.logger.Info("websocket connected for monitor", "monitor_id", monitorID)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(SuccessResponse("connected", gin.H{"monitor_id": monitorID})); err != nil {
		return
	}

	// читатель нужен для обработки close и pong
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug("websocket disconnected", "monitor_id", monitorID, "error", err)
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case hb, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(hb); err != nil {
				h.logger.Debug("websocket write error", "monitor_id", monitorID, "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
