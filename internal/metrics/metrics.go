// Package metrics holds the Prometheus instruments of the sync pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalogsync"

type Metrics struct {
	registry *prometheus.Registry

	tasksPublished   *prometheus.CounterVec
	tasksHandled     *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	entities         *prometheus.CounterVec
	brokerReconnects prometheus.Counter
}

// New registers every instrument on a fresh registry together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		tasksPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_published_total",
			Help:      "Sync tasks published, by topic and result.",
		}, []string{"topic", "result"}),
		tasksHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Sync tasks consumed, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent handling one sync task.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"topic"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Reconciled entities, by entity and action.",
		}, []string{"entity", "action"}),
		brokerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_reconnects_total",
			Help:      "Times a worker re-declared the queue after a broker error.",
		}),
	}

	reg.MustRegister(m.tasksPublished, m.tasksHandled, m.taskDuration, m.entities, m.brokerReconnects)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TaskPublished(topic string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.tasksPublished.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) TaskHandled(topic string, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.tasksHandled.WithLabelValues(topic, outcome).Inc()
	m.taskDuration.WithLabelValues(topic).Observe(took.Seconds())
}

// Entities adds n to the entity/action counter. Zero is ignored.
func (m *Metrics) Entities(entity string, action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entities.WithLabelValues(entity, action).Add(float64(n))
}

func (m *Metrics) BrokerReconnect() {
	if m == nil {
		return
	}
	m.brokerReconnects.Inc()
}
