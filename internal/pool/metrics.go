package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	poolLoadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "loads_total",
		Help:      "Total handle load attempts",
	})

	poolLoadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "load_failures_total",
		Help:      "Total failed handle loads",
	})

	poolEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "evictions_total",
		Help:      "Total handle evictions by reason",
	}, []string{"reason"})

	poolLoadedModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "loaded_models",
		Help:      "Handles currently cached",
	})

	poolInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "pool",
		Name:      "inflight_executions",
		Help:      "Executions currently holding a global slot",
	})
)

func init() {
	prometheus.MustRegister(poolLoadsTotal, poolLoadFailuresTotal, poolEvictionsTotal, poolLoadedModels, poolInflight)
}
