package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/radioprop/core"
)

// PropagationCollector bundles Prometheus metrics for radio receptions. It
// satisfies core.MetricsRecorder.
type PropagationCollector struct {
	gatherer prometheus.Gatherer

	Receptions     *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	Severities     *prometheus.CounterVec
	Attenuation    *prometheus.HistogramVec
	Duration       prometheus.Histogram
	ProfileSamples prometheus.Histogram
}

// NewPropagationCollector registers propagation metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewPropagationCollector(reg prometheus.Registerer) (*PropagationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	receptions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_receptions_total",
		Help: "Computed receptions, labeled by dominant propagation mode and readability.",
	}, []string{"mode", "readability"}), "radio_receptions_total")
	if err != nil {
		return nil, err
	}

	rejections, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_rejections_total",
		Help: "Receive queries answered with no signal, labeled by reason.",
	}, []string{"reason"}), "radio_rejections_total")
	if err != nil {
		return nil, err
	}

	severities, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_propagation_severity_total",
		Help: "Receptions by the worst input-range severity raised by the propagation model.",
	}, []string{"severity"}), "radio_propagation_severity_total")
	if err != nil {
		return nil, err
	}

	attenuation, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radio_path_loss_db",
		Help:    "Path loss subtracted from the link budget, in dB.",
		Buckets: prometheus.LinearBuckets(60, 10, 16),
	}, []string{"mode"}), "radio_path_loss_db")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "radio_reception_duration_seconds",
		Help:    "Time to compute one reception, terrain sampling included.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "radio_reception_duration_seconds")
	if err != nil {
		return nil, err
	}

	samples, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "radio_profile_samples",
		Help:    "Number of terrain samples in the elevation profile of a reception.",
		Buckets: prometheus.ExponentialBuckets(2, 2, 12),
	}), "radio_profile_samples")
	if err != nil {
		return nil, err
	}

	return &PropagationCollector{
		gatherer:       gatherer,
		Receptions:     receptions,
		Rejections:     rejections,
		Severities:     severities,
		Attenuation:    attenuation,
		Duration:       duration,
		ProfileSamples: samples,
	}, nil
}

// ObserveReception records one computed reception.
func (c *PropagationCollector) ObserveReception(r *core.Reception, elapsed time.Duration) {
	if c == nil || r == nil {
		return
	}
	mode := r.Mode.String()
	if r.FreeSpace {
		mode = "free_space"
	}
	c.Receptions.WithLabelValues(mode, r.Readability.String()).Inc()
	c.Severities.WithLabelValues(r.Severity.String()).Inc()
	c.Attenuation.WithLabelValues(mode).Observe(r.AttenuationDB)
	c.Duration.Observe(elapsed.Seconds())
	if n := len(r.Profile.Elevations); n > 0 {
		c.ProfileSamples.Observe(float64(n))
	}
}

// ObserveRejection counts a query that produced no signal.
func (c *PropagationCollector) ObserveRejection(reason string) {
	if c == nil {
		return
	}
	c.Rejections.WithLabelValues(reason).Inc()
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PropagationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PropagationCollector) Handler() http.Handler {
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

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
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
