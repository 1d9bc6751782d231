package core

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/signalsfoundry/radioprop/model"
	"github.com/signalsfoundry/radioprop/scenery"
)

// slope rises 100 m per degree of latitude north of 47°N; the northern
// half is forest.
var slope = scenery.FuncProvider(func(lat, lon float64) (float64, string, bool) {
	mat := "Grassland"
	if lat > 47.05 {
		mat = "MixedForest"
	}
	return (lat - 47) * 100, mat, true
})

func TestSampleSpansPath(t *testing.T) {
	s := NewSampler(slope)
	rx := model.Position{Latitude: 47.1, Longitude: 8, AltitudeM: 1000}
	tx := model.Position{Latitude: 47, Longitude: 8, AltitudeM: 0}

	p, err := s.Sample(context.Background(), rx, tx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	n := p.Samples() - 1
	if want := int(math.Round(p.DistanceM / DefaultSamplingDistanceM)); n != want {
		t.Fatalf("intervals = %d, want %d", n, want)
	}
	approx(t, "profile length", float64(n)*p.SpacingM, p.DistanceM, 1e-6)
	if p.SpacingM > DefaultSamplingDistanceM*1.01 {
		t.Fatalf("spacing %.2f m too coarse", p.SpacingM)
	}

	// Sampled from the receiver towards the transmitter.
	approx(t, "receiver ground", p.Elevations[0], 10, 1e-9)
	approx(t, "transmitter ground", p.Elevations[n], 0, 1e-9)
	for i := 1; i <= n; i++ {
		if p.Elevations[i] > p.Elevations[i-1]+1e-9 {
			t.Fatalf("elevation rises at sample %d on a path running downhill", i)
		}
	}
	if p.Materials[0] != "MixedForest" || p.Materials[n] != "Grassland" {
		t.Fatalf("terminal materials = %q, %q", p.Materials[0], p.Materials[n])
	}
	if !p.Receiver.Found || !p.Transmitter.Found {
		t.Fatalf("terminal ground not found: %+v %+v", p.Receiver, p.Transmitter)
	}
}

func TestSampleIsDeterministic(t *testing.T) {
	s := NewSampler(slope)
	rx := model.Position{Latitude: 47.3, Longitude: 8.2, AltitudeM: 900}
	tx := model.Position{Latitude: 47.01, Longitude: 7.9}

	a, err := s.Sample(context.Background(), rx, tx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	b, err := s.Sample(context.Background(), rx, tx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two samples of the same path differ")
	}
}

func TestSampleOutOfRange(t *testing.T) {
	s := NewSampler(scenery.FlatProvider{})
	rx := model.Position{Latitude: 47, Longitude: 8}
	tx := model.Position{Latitude: 50, Longitude: 8}
	if rx.DistanceM(tx) <= DefaultMaxDistanceM {
		t.Fatalf("test path too short: %.0f m", rx.DistanceM(tx))
	}

	p, err := s.Sample(context.Background(), rx, tx)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if p != nil {
		t.Fatalf("out of range path returned a profile")
	}
}

func TestSampleShortPaths(t *testing.T) {
	s := NewSampler(scenery.FlatProvider{ElevationM: 300})
	pos := model.Position{Latitude: 47, Longitude: 8, AltitudeM: 500}

	p, err := s.Sample(context.Background(), pos, pos)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if p.DistanceM != 0 || p.Samples() != 2 {
		t.Fatalf("co-located path = %.3f m with %d samples", p.DistanceM, p.Samples())
	}
	approx(t, "co-located spacing", p.SpacingM, minPathM, 0)

	// About 111 m: one interval covering the whole path.
	tx := model.Position{Latitude: 47.001, Longitude: 8}
	p, err = s.Sample(context.Background(), pos, tx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if p.Samples() != 2 {
		t.Fatalf("short path has %d samples, want 2", p.Samples())
	}
	approx(t, "short spacing", p.SpacingM, pos.DistanceM(tx), 1e-9)
	if p.Elevations[0] != 300 || p.Elevations[1] != 300 {
		t.Fatalf("elevations = %v", p.Elevations)
	}
}

func TestSampleMissingSceneryReadsSeaLevel(t *testing.T) {
	s := NewSampler(scenery.Layered{})
	p, err := s.Sample(context.Background(), model.Position{Latitude: 10, Longitude: 10}, model.Position{Latitude: 10.01, Longitude: 10})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for i, e := range p.Elevations {
		if e != 0 || p.Materials[i] != scenery.MaterialNone {
			t.Fatalf("sample %d = %.1f %q, want sea level with no material", i, e, p.Materials[i])
		}
	}
	if p.Receiver.Found {
		t.Fatalf("receiver ground reported as found")
	}
}

func TestSampleHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSampler(scenery.FlatProvider{})
	_, err := s.Sample(ctx, model.Position{Latitude: 47, Longitude: 8}, model.Position{Latitude: 48, Longitude: 8})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPathOriented(t *testing.T) {
	p := &Path{
		SpacingM:   90,
		Elevations: []float64{1, 2, 3},
		Materials:  []string{"a", "b", "c"},
	}
	prof, mats := p.Oriented(true)
	if !reflect.DeepEqual(prof.Elevations, []float64{1, 2, 3}) || !reflect.DeepEqual(mats, []string{"a", "b", "c"}) {
		t.Fatalf("receiver-first profile = %v %v", prof.Elevations, mats)
	}
	prof, mats = p.Oriented(false)
	if !reflect.DeepEqual(prof.Elevations, []float64{3, 2, 1}) || !reflect.DeepEqual(mats, []string{"c", "b", "a"}) {
		t.Fatalf("transmitter-first profile = %v %v", prof.Elevations, mats)
	}
	if p.Elevations[0] != 1 {
		t.Fatalf("Oriented modified the sampled path")
	}
}

func TestHeightAboveGround(t *testing.T) {
	g := Ground{ElevationM: 400}
	approx(t, "airborne", HeightAboveGround(model.Position{AltitudeM: 1400}, g, 2), 1002, 1e-12)
	approx(t, "below terrain", HeightAboveGround(model.Position{AltitudeM: 300}, g, 10), 10, 1e-12)
}
