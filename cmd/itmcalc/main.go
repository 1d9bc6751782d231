// Command itmcalc runs a single Irregular Terrain Model prediction and
// prints the result.
//
// The profile is a synthetic smooth hill by default, can be read from a
// file of whitespace-separated elevations, or sampled from terrain tiles
// between two positions. With -area the prediction uses terrain
// irregularity alone.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/signalsfoundry/radioprop/core"
	"github.com/signalsfoundry/radioprop/itm"
	"github.com/signalsfoundry/radioprop/model"
	"github.com/signalsfoundry/radioprop/scenery"
)

type options struct {
	freqMHz    float64
	txHeightM  float64
	rxHeightM  float64
	distanceKM float64
	spacingM   float64
	hillM      float64

	profilePath string
	tilesDir    string
	from, to    string

	climate      string
	polarization string
	confidence   float64
	reliability  float64

	area   bool
	deltaH float64

	asJSON bool
}

func main() {
	var opts options
	flag.Float64Var(&opts.freqMHz, "freq", 125, "carrier frequency in MHz")
	flag.Float64Var(&opts.txHeightM, "tx-height", 10, "transmitter antenna height above ground in metres")
	flag.Float64Var(&opts.rxHeightM, "rx-height", 10, "receiver antenna height above ground in metres")
	flag.Float64Var(&opts.distanceKM, "distance", 50, "path length of the synthetic profile in km")
	flag.Float64Var(&opts.spacingM, "spacing", core.DefaultSamplingDistanceM, "profile sample spacing in metres")
	flag.Float64Var(&opts.hillM, "hill", 0, "height of a smooth hill at mid-path on the synthetic profile")
	flag.StringVar(&opts.profilePath, "profile", "", "file of whitespace-separated elevations, transmitter first")
	flag.StringVar(&opts.tilesDir, "tiles", "", "terrain tile directory to sample between -from and -to")
	flag.StringVar(&opts.from, "from", "", "transmitter position lat,lon for tile sampling")
	flag.StringVar(&opts.to, "to", "", "receiver position lat,lon for tile sampling")
	flag.StringVar(&opts.climate, "climate", itm.ContinentalTemperate.String(), "radio climate")
	flag.StringVar(&opts.polarization, "polarization", "vertical", "vertical or horizontal")
	flag.Float64Var(&opts.confidence, "confidence", 0.9, "confidence quantile in (0,1)")
	flag.Float64Var(&opts.reliability, "reliability", 0.9, "reliability quantile in (0,1)")
	flag.BoolVar(&opts.area, "area", false, "area prediction from terrain irregularity instead of a profile")
	flag.Float64Var(&opts.deltaH, "dh", 90, "terrain irregularity for -area, metres")
	flag.BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "itmcalc: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	climate, err := itm.ParseClimate(opts.climate)
	if err != nil {
		return err
	}
	pol := itm.Vertical
	switch strings.ToLower(opts.polarization) {
	case "vertical", "v":
	case "horizontal", "h":
		pol = itm.Horizontal
	default:
		return fmt.Errorf("unknown polarization %q", opts.polarization)
	}

	if opts.area {
		return runArea(opts, climate, pol, out)
	}

	profile, err := loadProfile(ctx, opts)
	if err != nil {
		return err
	}
	params := itm.DefaultParameters()
	params.TransmitterHeightM = opts.txHeightM
	params.ReceiverHeightM = opts.rxHeightM
	params.FrequencyMHz = opts.freqMHz
	params.Climate = climate
	params.Polarization = pol
	params.Confidence = opts.confidence
	params.Reliability = opts.reliability

	res, err := itm.PointToPoint(profile, params)
	if err != nil {
		return err
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "distance          %9.3f km (%d samples)\n", res.DistanceM/1000, len(profile.Elevations))
	fmt.Fprintf(out, "mode              %9s (code %d, %d horizons)\n", res.Mode, res.PropagationCode(), res.HorizonCount)
	for i := range res.HorizonCount {
		fmt.Fprintf(out, "horizon %d         %9.3f km\n", i+1, res.HorizonDistancesM[i]/1000)
	}
	fmt.Fprintf(out, "terrain Δh        %9.1f m\n", res.TerrainIrregularityM)
	fmt.Fprintf(out, "free space loss   %9.2f dB\n", res.FreeSpaceLossDB)
	fmt.Fprintf(out, "reference atten.  %9.2f dB\n", res.ReferenceAttenuationDB)
	fmt.Fprintf(out, "attenuation       %9.2f dB\n", res.AttenuationDB)
	fmt.Fprintf(out, "total loss        %9.2f dB\n", res.TotalLossDB)
	printWarnings(out, res.Severity, res.Warnings)
	return nil
}

func runArea(opts options, climate itm.Climate, pol itm.Polarization, out io.Writer) error {
	p := itm.DefaultParameters()
	a, err := itm.NewArea(itm.AreaParameters{
		TransmitterHeightM:   opts.txHeightM,
		ReceiverHeightM:      opts.rxHeightM,
		TerrainIrregularityM: opts.deltaH,
		FrequencyMHz:         opts.freqMHz,
		Permittivity:         p.Permittivity,
		Conductivity:         p.Conductivity,
		SurfaceRefractivity:  p.SurfaceRefractivity,
		Climate:              climate,
		Polarization:         pol,
		Variability:          itm.VariabilityMode{Base: itm.Broadcast},
	})
	if err != nil {
		return err
	}
	res := a.Loss(opts.distanceKM*1000, opts.reliability, 0.5, opts.confidence)
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "distance          %9.3f km (area, Δh %.0f m)\n", opts.distanceKM, opts.deltaH)
	fmt.Fprintf(out, "free space loss   %9.2f dB\n", res.FreeSpaceLossDB)
	fmt.Fprintf(out, "reference atten.  %9.2f dB\n", res.ReferenceAttenuationDB)
	fmt.Fprintf(out, "attenuation       %9.2f dB\n", res.AttenuationDB)
	fmt.Fprintf(out, "total loss        %9.2f dB\n", res.TotalLossDB)
	printWarnings(out, res.Severity, res.Warnings)
	return nil
}

func printWarnings(out io.Writer, sev itm.Severity, warnings []itm.Warning) {
	fmt.Fprintf(out, "severity          %9s\n", sev)
	for _, w := range warnings {
		fmt.Fprintf(out, "  %-12s %s\n", w.Severity, w.Reason)
	}
}

// loadProfile picks the profile source from the options.
func loadProfile(ctx context.Context, opts options) (itm.Profile, error) {
	switch {
	case opts.tilesDir != "":
		return sampleTiles(ctx, opts)
	case opts.profilePath != "":
		f, err := os.Open(opts.profilePath)
		if err != nil {
			return itm.Profile{}, err
		}
		defer f.Close()
		return readProfile(f, opts.spacingM)
	default:
		return hillProfile(opts.distanceKM*1000, opts.spacingM, opts.hillM)
	}
}

// hillProfile is a flat path with a raised-cosine hill of height hillM
// spanning its middle third.
func hillProfile(distanceM, spacingM, hillM float64) (itm.Profile, error) {
	if !(spacingM > 0) || !(distanceM > 0) {
		return itm.Profile{}, fmt.Errorf("%w: distance %.0f m, spacing %.1f m", itm.ErrInvalidProfile, distanceM, spacingM)
	}
	n := max(1, int(math.Round(distanceM/spacingM)))
	z := make([]float64, n+1)
	for i := range z {
		x := float64(i) / float64(n)
		if x > 1.0/3 && x < 2.0/3 {
			z[i] = hillM * 0.5 * (1 - math.Cos(2*math.Pi*(x-1.0/3)*3))
		}
	}
	return itm.NewProfile(distanceM/float64(n), z)
}

func readProfile(r io.Reader, spacingM float64) (itm.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return itm.Profile{}, err
	}
	fields := strings.Fields(string(data))
	z := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return itm.Profile{}, fmt.Errorf("elevation %q: %w", f, err)
		}
		z = append(z, v)
	}
	return itm.NewProfile(spacingM, z)
}

func sampleTiles(ctx context.Context, opts options) (itm.Profile, error) {
	tx, err := parseLatLon(opts.from)
	if err != nil {
		return itm.Profile{}, fmt.Errorf("-from: %w", err)
	}
	rx, err := parseLatLon(opts.to)
	if err != nil {
		return itm.Profile{}, fmt.Errorf("-to: %w", err)
	}
	tiles := scenery.NewTileStore(scenery.TileStoreConfig{Dir: opts.tilesDir})
	s := core.NewSampler(scenery.Layered{tiles, scenery.FlatProvider{}})
	s.SpacingM = opts.spacingM

	path, err := s.Sample(ctx, rx, tx)
	if err != nil {
		return itm.Profile{}, err
	}
	// The calculator takes the transmitter first.
	profile, _ := path.Oriented(false)
	return profile, nil
}

func parseLatLon(s string) (model.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Position{}, errors.New("want lat,lon")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Position{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Position{}, err
	}
	return model.Position{Latitude: lat, Longitude: lon}, nil
}
