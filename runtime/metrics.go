package runtime

import (
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type nodeMetrics struct {
	running  prometheus.Gauge
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newNodeMetrics(reg prometheus.Registerer) *nodeMetrics {
	m := &nodeMetrics{
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jobflow",
			Subsystem: "node",
			Name:      "running",
			Help:      "Number of nodes running now.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobflow",
			Subsystem: "node",
			Name:      "finished_total",
			Help:      "Number of finished nodes by job type and result.",
		}, []string{"job_type", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jobflow",
			Subsystem: "node",
			Name:      "duration_seconds",
			Help:      "Run time of nodes by job type.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"job_type"}),
	}
	if reg == nil {
		return m
	}
	m.running = register(reg, m.running).(prometheus.Gauge)
	m.finished = register(reg, m.finished).(*prometheus.CounterVec)
	m.duration = register(reg, m.duration).(*prometheus.HistogramVec)
	return m
}

// register returns the collector already registered under the same
// name if there is one.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		log.Errorf("register metrics failed: %v", err)
	}
	return c
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
