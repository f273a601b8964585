package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Vigil/internal/backend/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCycle(t *testing.T) {
	m := New()
	monitor := &models.Monitor{ID: "m1", Type: models.MonitorTypeHTTP}

	m.ObserveCycle(monitor, &models.Heartbeat{Status: models.StatusUp}, 20*time.Millisecond)
	m.ObserveCycle(monitor, &models.Heartbeat{Status: models.StatusDown}, 30*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("http", "UP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("http", "DOWN")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.monitorStatus.WithLabelValues("m1", "http")))

	m.Forget(monitor)
	assert.Equal(t, 0, testutil.CollectAndCount(m.monitorStatus))
}

func TestObserveDispatchAndHandler(t *testing.T) {
	m := New()
	m.ObserveDispatch(nil)
	m.ObserveDispatch(errors.New("boom"))
	m.SetScheduled(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("failure")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vigil_scheduled_monitors 3")
}
