// Package metrics exposes Prometheus collectors for the simulation's
// per-tick behavior: tick duration, fire coverage, DETM transmission
// count, and connected-link count. Grounded on 99souls-ariadne's
// engine/telemetry/metrics/prometheus.go (a provider owning its own
// prom.Registry rather than using the global default one, so multiple
// simulation runs in one process never collide on metric names), scaled
// down from that file's generic multi-backend Provider abstraction to a
// fixed set of collectors this one domain actually needs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors bundles the simulation's registered metrics. The run loop in
// cmd/swarmsimd updates TickDuration, BurningCells and BurnedCells; the
// other collectors are registered and exported but nothing updates them.
type Collectors struct {
	registry *prometheus.Registry

	TickDuration      prometheus.Histogram
	BurningCells      prometheus.Gauge
	BurnedCells       prometheus.Gauge
	ConnectedLinks    prometheus.Gauge
	TransmissionsTotal prometheus.Counter
	SuppressionsTotal prometheus.Counter
	DronesDocked      prometheus.Gauge
}

// New registers every collector on a fresh registry (never the global
// default), so multiple Scheduler instances in the same process (e.g.
// in tests) never collide.
func New() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		registry: reg,
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarmsim_tick_duration_seconds",
			Help:    "Wall-clock duration of one scheduler Step call.",
			Buckets: prometheus.DefBuckets,
		}),
		BurningCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmsim_fire_burning_cells",
			Help: "Number of grid cells currently burning.",
		}),
		BurnedCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmsim_fire_burned_cells",
			Help: "Number of grid cells fully burned out.",
		}),
		ConnectedLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmsim_channel_connected_links",
			Help: "Number of ordered drone pairs with a connected RF link this tick.",
		}),
		TransmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsim_detm_transmissions_total",
			Help: "Total DETM-gated telemetry transmissions across the fleet.",
		}),
		SuppressionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsim_suppressions_total",
			Help: "Total suppression actions applied to the fire grid.",
		}),
		DronesDocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmsim_drones_docked",
			Help: "Number of drones currently docked.",
		}),
	}

	reg.MustRegister(
		c.TickDuration,
		c.BurningCells,
		c.BurnedCells,
		c.ConnectedLinks,
		c.TransmissionsTotal,
		c.SuppressionsTotal,
		c.DronesDocked,
	)

	return c
}

// Handler returns the HTTP handler to mount at GET /metrics.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveTick records one Step call's wall-clock duration.
func (c *Collectors) ObserveTick(d time.Duration) {
	c.TickDuration.Observe(d.Seconds())
}
