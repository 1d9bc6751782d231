package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/radioprop/core"
	"github.com/signalsfoundry/radioprop/internal/logging"
	"github.com/signalsfoundry/radioprop/internal/observability"
	"github.com/signalsfoundry/radioprop/kb"
	"github.com/signalsfoundry/radioprop/model"
	"github.com/signalsfoundry/radioprop/scenery"
	"github.com/signalsfoundry/radioprop/timectrl"
)

// options are the resolved command line settings.
type options struct {
	configPath   string
	stationsPath string
	tilesDir     string
	metricsAddr  string

	duration    time.Duration
	tick        time.Duration
	accelerated bool

	from, to model.Position
	speedKts float64
	rollDeg  float64

	com1, com2 float64
}

func main() {
	var opts options
	var from, to string
	flag.StringVar(&opts.configPath, "config", "configs/radio.json", "path to the radio configuration (empty for defaults)")
	flag.StringVar(&opts.stationsPath, "stations", "configs/stations.json", "path to the station list")
	flag.StringVar(&opts.tilesDir, "tiles", "", "directory of terrain tiles; flat sea-level terrain when empty")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	flag.DurationVar(&opts.duration, "duration", 10*time.Minute, "total simulated flight time")
	flag.DurationVar(&opts.tick, "tick", 30*time.Second, "simulation tick")
	flag.BoolVar(&opts.accelerated, "accelerated", true, "run in accelerated mode (vs real-time)")
	flag.StringVar(&from, "from", "47.4647,8.5492,432", "route start as lat,lon,alt_m")
	flag.StringVar(&to, "to", "46.2381,6.1090,9500", "route end as lat,lon,alt_m")
	flag.Float64Var(&opts.speedKts, "speed", 250, "ground speed in knots")
	flag.Float64Var(&opts.rollDeg, "roll", 0, "own-ship bank angle in degrees")
	flag.Float64Var(&opts.com1, "com1", 118.1, "COM1 frequency in MHz")
	flag.Float64Var(&opts.com2, "com2", 0, "COM2 frequency in MHz (0 for off)")
	flag.Parse()

	log := logging.NewFromEnv()

	var err error
	if opts.from, err = parsePosition(from); err != nil {
		fmt.Fprintf(os.Stderr, "-from: %v\n", err)
		os.Exit(2)
	}
	if opts.to, err = parsePosition(to); err != nil {
		fmt.Fprintf(os.Stderr, "-to: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tracingCfg, err := observability.TracingConfigFromEnv()
	if err != nil {
		log.Error(ctx, "invalid tracing configuration", logging.String("error", err.Error()))
		os.Exit(2)
	}
	shutdown, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	if err := run(ctx, opts, os.Stdout, log); err != nil {
		log.Error(ctx, "radio simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads the configuration, stations and terrain, then flies the
// own-ship along its route and prints what each station delivers.
func run(ctx context.Context, opts options, out io.Writer, log logging.Logger) error {
	if log == nil {
		log = logging.Noop()
	}

	cfg := core.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := core.LoadConfigFile(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}

	registry := kb.NewStationRegistry()
	n, err := registry.LoadStationsFile(opts.stationsPath)
	if err != nil {
		return err
	}
	log.Info(ctx, "loaded stations", logging.String("path", opts.stationsPath), logging.Int("count", n))
	unsubscribe := registry.Subscribe(func(e kb.Event) {
		log.Debug(context.Background(), "station registry changed",
			logging.String("station_id", e.Station.ID), logging.Int("event", int(e.Type)))
	})
	defer unsubscribe()

	reg := prometheus.NewRegistry()
	propagation, err := observability.NewPropagationCollector(reg)
	if err != nil {
		return fmt.Errorf("init propagation metrics: %w", err)
	}
	sceneryMetrics, err := observability.NewSceneryCollector(reg)
	if err != nil {
		return fmt.Errorf("init scenery metrics: %w", err)
	}
	metricsSrv := serveMetrics(opts.metricsAddr, propagation, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	terrain, err := openTerrain(ctx, opts, cfg, sceneryMetrics, log)
	if err != nil {
		return err
	}

	radio, err := core.NewRadioService(cfg, terrain,
		core.WithLogger(log),
		core.WithMetricsRecorder(propagation),
	)
	if err != nil {
		return err
	}
	radio.Tune(opts.com1, opts.com2)

	mode := timectrl.RealTime
	if opts.accelerated {
		mode = timectrl.Accelerated
	}
	start := time.Now().UTC()
	tc := timectrl.NewTimeController(start, opts.tick, mode)

	routeM := opts.from.DistanceM(opts.to)
	speedMS := opts.speedKts * 1852 / 3600
	att := model.Attitude{RollDeg: opts.rollDeg, HeadingDeg: opts.from.BearingTo(opts.to)}

	tc.AddListener(func(simTime time.Time) {
		frac := 1.0
		if routeM > 0 {
			frac = min(simTime.Sub(start).Seconds()*speedMS/routeM, 1)
		}
		pos := opts.from.Interpolate(opts.to, frac)

		tickCtx, tickLog := logging.WithRequestLogger(ctx, log)
		tickCtx = logging.ContextWithLogger(tickCtx, tickLog.With(logging.String("sim_time", simTime.Format(time.RFC3339))))

		results, err := radio.ReceiveAll(tickCtx, registry.ListStations(), pos, att)
		if err != nil {
			tickLog.Warn(tickCtx, "receive batch aborted", logging.String("error", err.Error()))
			return
		}
		printTick(out, radio, simTime, pos, results)
	})

	halfway := tc.After(opts.duration / 2)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		select {
		case t := <-halfway:
			log.Info(watchCtx, "halfway through the flight", logging.String("sim_time", t.Format(time.RFC3339)))
		case <-watchCtx.Done():
		}
	}()

	log.Info(ctx, "starting flight",
		logging.Float("route_km", routeM/1000),
		logging.String("duration", opts.duration.String()),
		logging.String("tick", opts.tick.String()),
		logging.String("model", cfg.Model.String()),
	)
	<-tc.Start(ctx, opts.duration)
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info(ctx, "flight complete")
	return nil
}

// openTerrain layers the tile store, when configured, over sea level and
// warms the tiles around the route.
func openTerrain(ctx context.Context, opts options, cfg core.Config, metrics scenery.TileMetricsRecorder, log logging.Logger) (scenery.Provider, error) {
	if opts.tilesDir == "" {
		return scenery.FlatProvider{}, nil
	}
	tiles := scenery.NewTileStore(scenery.TileStoreConfig{Dir: opts.tilesDir, Metrics: metrics})

	// Stations are heard up to the maximum range, so pad the route by it.
	pad := cfg.MaxDistanceM / 111e3
	if err := tiles.Preload(ctx,
		min(opts.from.Latitude, opts.to.Latitude)-pad, min(opts.from.Longitude, opts.to.Longitude)-pad,
		max(opts.from.Latitude, opts.to.Latitude)+pad, max(opts.from.Longitude, opts.to.Longitude)+pad,
	); err != nil {
		return nil, fmt.Errorf("preload tiles from %q: %w", opts.tilesDir, err)
	}
	log.Info(ctx, "terrain tiles loaded", logging.String("dir", opts.tilesDir), logging.Int("cached", tiles.Cached()))
	return scenery.Layered{tiles, scenery.FlatProvider{}}, nil
}

func printTick(out io.Writer, radio *core.RadioService, simTime time.Time, pos model.Position, results []core.Result) {
	fmt.Fprintf(out, "[%s] own-ship %.4f, %.4f @ %.0f m\n",
		simTime.Format(time.RFC3339), pos.Latitude, pos.Longitude, pos.AltitudeM)
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(out, "  %-10s no signal: %v\n", res.StationID, res.Err)
			continue
		}
		r := res.Reception
		tuned := " "
		if radio.Tuned(r.FrequencyMHz) {
			tuned = "*"
		}
		fmt.Fprintf(out, "%s %-10s %8.3f MHz %6.1f km %-13s loss=%6.1f dB margin=%6.1f dB %-9s clarity=%.2f\n",
			tuned, r.StationID, r.FrequencyMHz, r.DistanceM/1000, modeLabel(r),
			r.AttenuationDB, r.SignalMarginDB, r.Readability, r.Clarity())
	}
}

func modeLabel(r *core.Reception) string {
	if r.FreeSpace {
		return "free_space"
	}
	return r.Mode.String()
}

func serveMetrics(addr string, collector *observability.PropagationCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// parsePosition reads "lat,lon" or "lat,lon,alt_m".
func parsePosition(s string) (model.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return model.Position{}, fmt.Errorf("want lat,lon[,alt_m], got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.Position{}, fmt.Errorf("parse %q: %w", p, err)
		}
		v[i] = f
	}
	pos := model.Position{Latitude: v[0], Longitude: v[1], AltitudeM: v[2]}
	if pos.Latitude < -90 || pos.Latitude > 90 || pos.Longitude < -180 || pos.Longitude > 180 {
		return model.Position{}, fmt.Errorf("position %q out of range", s)
	}
	return pos, nil
}
