package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SceneryCollector exposes terrain tile cache metrics. It satisfies
// scenery.TileMetricsRecorder.
type SceneryCollector struct {
	gatherer prometheus.Gatherer

	TileLoads        *prometheus.CounterVec
	TileLoadDuration prometheus.Histogram
	TilesCached      prometheus.Gauge
	TileCacheRatio   prometheus.Gauge
}

// NewSceneryCollector registers tile cache metrics against the provided registerer.
func NewSceneryCollector(reg prometheus.Registerer) (*SceneryCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenery_tile_loads_total",
		Help: "Tile cache misses, labeled by whether the tile was loaded, missing or unreadable.",
	}, []string{"outcome"})
	loads, err := registerCounterVec(reg, loads, "scenery_tile_loads_total")
	if err != nil {
		return nil, err
	}

	loadHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenery_tile_load_duration_seconds",
		Help:    "Duration of reading and decoding one terrain tile.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	loadHistogram, err = registerHistogram(reg, loadHistogram, "scenery_tile_load_duration_seconds")
	if err != nil {
		return nil, err
	}

	cached := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenery_tiles_cached",
		Help: "Number of tiles held in the cache, known-missing tiles included.",
	})
	cached, err = registerGauge(reg, cached, "scenery_tiles_cached")
	if err != nil {
		return nil, err
	}

	ratio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenery_tile_cache_hit_ratio",
		Help: "Hit ratio for the terrain tile cache.",
	})
	ratio, err = registerGauge(reg, ratio, "scenery_tile_cache_hit_ratio")
	if err != nil {
		return nil, err
	}

	return &SceneryCollector{
		gatherer:         gatherer,
		TileLoads:        loads,
		TileLoadDuration: loadHistogram,
		TilesCached:      cached,
		TileCacheRatio:   ratio,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SceneryCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTileLoad records one tile cache miss.
func (c *SceneryCollector) ObserveTileLoad(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.TileLoads.WithLabelValues(outcome).Inc()
	c.TileLoadDuration.Observe(elapsed.Seconds())
}

// SetTileCache updates the cache size and hit ratio gauges.
func (c *SceneryCollector) SetTileCache(cached int, hitRatio float64) {
	if c == nil {
		return
	}
	c.TilesCached.Set(float64(cached))
	c.TileCacheRatio.Set(min(max(hitRatio, 0), 1))
}
