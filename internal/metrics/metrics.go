// Package metrics exposes Prometheus metrics for a running flock.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FlockCollector bundles the simulation metrics.
type FlockCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal   prometheus.Counter
	StepDuration prometheus.Histogram
	Agents       prometheus.Gauge
	MeanSpeed    prometheus.Gauge
	MaxSpeed     prometheus.Gauge
	Centroid     *prometheus.GaugeVec
}

// NewFlockCollector registers the flock metrics against reg, defaulting to
// the global Prometheus registry when reg is nil. Registering twice against
// the same registry reuses the existing collectors.
func NewFlockCollector(reg prometheus.Registerer) (*FlockCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flock_steps_total",
		Help: "Total number of simulation steps executed.",
	}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flock_step_duration_seconds",
		Help:    "Wall time spent in a single simulation step.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}))
	if err != nil {
		return nil, err
	}
	agents, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flock_agents",
		Help: "Number of agents in the flock.",
	}))
	if err != nil {
		return nil, err
	}
	meanSpeed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flock_mean_speed",
		Help: "Mean agent speed after the last step, in field units per step.",
	}))
	if err != nil {
		return nil, err
	}
	maxSpeed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flock_max_speed",
		Help: "Largest agent speed after the last step.",
	}))
	if err != nil {
		return nil, err
	}
	centroid, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flock_centroid",
		Help: "Flock centre of mass after the last step, labeled by axis.",
	}, []string{"axis"}))
	if err != nil {
		return nil, err
	}

	return &FlockCollector{
		gatherer:     gatherer,
		StepsTotal:   steps,
		StepDuration: duration,
		Agents:       agents,
		MeanSpeed:    meanSpeed,
		MaxSpeed:     maxSpeed,
		Centroid:     centroid,
	}, nil
}

// ObserveStep records one step that took elapsed and left the flock in st.
func (c *FlockCollector) ObserveStep(elapsed time.Duration, st flock.Stats) {
	if c == nil {
		return
	}
	c.StepsTotal.Inc()
	c.StepDuration.Observe(elapsed.Seconds())
	c.Agents.Set(float64(st.Agents))
	c.MeanSpeed.Set(st.MeanSpeed)
	c.MaxSpeed.Set(st.MaxSpeed)
	c.Centroid.WithLabelValues("x").Set(st.Centroid.X)
	c.Centroid.WithLabelValues("y").Set(st.Centroid.Y)
	c.Centroid.WithLabelValues("z").Set(st.Centroid.Z)
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *FlockCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *FlockCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// register adds col to reg or returns the collector already registered under the same name.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return col, nil
}
