package streaming

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors registered once in New. They
// mirror the counters exposed through GetStats/GetWorkerStatuses: the
// events counter moves with every applied event, while the connection
// gauge and the drop counter are brought up to date on each stats tick.
type metrics struct {
	activeConnections prometheus.Gauge
	eventsTotal       prometheus.Counter
	workerDropsTotal  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_active_connections",
			Help: "Number of workers currently in the connected state.",
		}),
		eventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streaming_events_total",
			Help: "Total normalized market events published to the bus.",
		}),
		workerDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streaming_worker_drops_total",
			Help: "Total frames dropped by workers for being unparseable.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.activeConnections, m.eventsTotal, m.workerDropsTotal)
	}
	return m
}
