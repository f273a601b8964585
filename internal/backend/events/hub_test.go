package events

import (
	"testing"

	"Vigil/internal/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRoutesByMonitor(t *testing.T) {
	h := NewHub(nil)
	m1 := h.Subscribe("m1", 4)
	all := h.Subscribe("", 4)
	m2 := h.Subscribe("m2", 4)

	h.Publish(&models.Heartbeat{MonitorID: "m1", Status: models.StatusUp})

	require.Len(t, m1.C, 1)
	require.Len(t, all.C, 1)
	assert.Len(t, m2.C, 0)
	assert.Equal(t, "m1", (<-m1.C).MonitorID)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("m1", 1)

	h.Publish(&models.Heartbeat{MonitorID: "m1"})
	h.Publish(&models.Heartbeat{MonitorID: "m1"})

	assert.Len(t, sub.C, 1)
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("m1", 1)
	assert.Equal(t, 1, h.Subscribers())

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.Subscribers())

	_, open := <-sub.C
	assert.False(t, open)

	h.Publish(&models.Heartbeat{MonitorID: "m1"})
}
