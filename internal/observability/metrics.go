package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegistryCollector bundles Prometheus metrics for the kernel registry and
// exposes them over HTTP.
type RegistryCollector struct {
	gatherer prometheus.Gatherer

	KernelOps         *prometheus.CounterVec
	KernelOpDurations *prometheus.HistogramVec

	KernelsLoaded prometheus.Gauge
	EntitiesLive  prometheus.Gauge
	CoverageIDs   *prometheus.GaugeVec
}

// NewRegistryCollector registers registry metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRegistryCollector(reg prometheus.Registerer) (*RegistryCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ephem_kernel_operations_total",
		Help: "Kernel load and unload calls, labeled by operation and outcome.",
	}, []string{"op", "outcome"}), "ephem_kernel_operations_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ephem_kernel_operation_duration_seconds",
		Help:    "Latency of kernel load and unload calls in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"}), "ephem_kernel_operation_duration_seconds")
	if err != nil {
		return nil, err
	}

	kernels, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ephem_kernels_loaded",
		Help: "Current number of loaded kernel files.",
	}), "ephem_kernels_loaded")
	if err != nil {
		return nil, err
	}
	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ephem_entities_live",
		Help: "Current number of entities referenced by loaded kernels.",
	}), "ephem_entities_live")
	if err != nil {
		return nil, err
	}
	coverage, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ephem_coverage_ids",
		Help: "Current number of entity ids with coverage, labeled by channel.",
	}, []string{"channel"}), "ephem_coverage_ids")
	if err != nil {
		return nil, err
	}

	return &RegistryCollector{
		gatherer:          gatherer,
		KernelOps:         ops,
		KernelOpDurations: durations,
		KernelsLoaded:     kernels,
		EntitiesLive:      entities,
		CoverageIDs:       coverage,
	}, nil
}

// SetRegistryCounts satisfies kernel.MetricsRecorder so the registry can
// drive gauge values directly from its mutators.
func (c *RegistryCollector) SetRegistryCounts(kernels, entities, positionIDs, rotationIDs int) {
	if c == nil {
		return
	}
	if c.KernelsLoaded != nil {
		c.KernelsLoaded.Set(float64(kernels))
	}
	if c.EntitiesLive != nil {
		c.EntitiesLive.Set(float64(entities))
	}
	if c.CoverageIDs != nil {
		c.CoverageIDs.WithLabelValues("position").Set(float64(positionIDs))
		c.CoverageIDs.WithLabelValues("rotation").Set(float64(rotationIDs))
	}
}

// ObserveKernelOp records one load or unload call.
func (c *RegistryCollector) ObserveKernelOp(op, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.KernelOps != nil {
		c.KernelOps.WithLabelValues(op, outcome).Inc()
	}
	if c.KernelOpDurations != nil {
		c.KernelOpDurations.WithLabelValues(op).Observe(d.Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RegistryCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
