package metrics

import (
	"net/http"
	"time"

	"Vigil/internal/backend/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vigil"

// Metrics метрики движка проверок. Свой реестр, без глобального DefaultRegisterer
type Metrics struct {
	registry      *prometheus.Registry
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	monitorStatus *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	running       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_cycles_total",
			Help:      "Completed check cycles by monitor type and resulting status.",
		}, []string{"type", "status"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_cycle_duration_seconds",
			Help:      "Duration of check cycles including probe, persistence and dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"type"}),
		monitorStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_status",
			Help:      "Current status of a monitor (0 down, 1 up, 2 pending, 3 maintenance).",
		}, []string{"monitor_id", "type"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_dispatches_total",
			Help:      "Notification dispatches by result.",
		}, []string{"result"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_monitors",
			Help:      "Monitors with a running timeline.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.cycles,
		m.cycleDuration,
		m.monitorStatus,
		m.notifications,
		m.running,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle учитывает завершенный цикл проверки
func (m *Metrics) ObserveCycle(monitor *models.Monitor, heartbeat *models.Heartbeat, elapsed time.Duration) {
	monitorType := string(monitor.Type)
	m.cycles.WithLabelValues(monitorType, heartbeat.Status.String()).Inc()
	m.cycleDuration.WithLabelValues(monitorType).Observe(elapsed.Seconds())
	m.monitorStatus.WithLabelValues(monitor.ID, monitorType).Set(float64(heartbeat.Status))
}

func (m *Metrics) ObserveDispatch(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) SetScheduled(n int) {
	m.running.Set(float64(n))
}

// Forget убирает метрики удаленного или остановленного монитора
func (m *Metrics) Forget(monitor *models.Monitor) {
	m.monitorStatus.DeleteLabelValues(monitor.ID, string(monitor.Type))
}
