package itm

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func testParams(htx, hrx, conf, rel float64) Parameters {
	p := DefaultParameters()
	p.TransmitterHeightM = htx
	p.ReceiverHeightM = hrx
	p.FrequencyMHz = 125
	p.Confidence = conf
	p.Reliability = rel
	return p
}

// evenProfile spreads n samples over distanceM.
func evenProfile(distanceM float64, n int) Profile {
	return flatProfile(n, distanceM/float64(n-1), 0)
}

// TestPointToPointTroposcatter covers a 250 km path between 10 m masts
// over flat ground, far beyond both radio horizons.
func TestPointToPointTroposcatter(t *testing.T) {
	r, err := PointToPoint(evenProfile(250e3, 2778), testParams(10, 10, 0.9, 0.9))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Mode != Troposcatter {
		t.Fatalf("mode = %v, want troposcatter", r.Mode)
	}
	if r.HorizonCount != 2 {
		t.Fatalf("horizon count = %d, want 2", r.HorizonCount)
	}
	if r.TotalLossDB <= 150 {
		t.Fatalf("total loss = %.2f dB, want > 150", r.TotalLossDB)
	}
	approx(t, "TotalLossDB", r.TotalLossDB, 201.830317, 1e-3)
	approx(t, "ReferenceAttenuationDB", r.ReferenceAttenuationDB, 67.820792, 1e-3)
	approx(t, "horizon[0]", r.HorizonDistancesM[0], 13053.655, 1e-2)
	if r.Severity != SeverityOK {
		t.Fatalf("severity = %v, warnings %v", r.Severity, r.Warnings)
	}
	if r.PropagationCode() != 10 {
		t.Fatalf("propagation code = %d, want 10", r.PropagationCode())
	}
}

// TestPointToPointHighReceiver puts the receiver 3000 m above a sea-level
// transmitter 50 km away: a clear line of sight.
func TestPointToPointHighReceiver(t *testing.T) {
	r, err := PointToPoint(evenProfile(50e3, 556), testParams(2, 3002, 0.9, 0.9))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Mode == Troposcatter {
		t.Fatalf("mode = troposcatter, want line of sight or diffraction")
	}
	if r.Mode != LineOfSight || r.HorizonCount != 0 {
		t.Fatalf("mode = %v with %d horizons, want line of sight", r.Mode, r.HorizonCount)
	}
	if r.ReferenceAttenuationDB < 0 {
		t.Fatalf("reference attenuation = %.3f, want >= 0", r.ReferenceAttenuationDB)
	}
	approx(t, "TotalLossDB", r.TotalLossDB, 118.197684, 1e-3)
	// 3002 m exceeds the antenna height the model supports.
	if r.Severity != SeverityOutOfRange {
		t.Fatalf("severity = %v, want out_of_range", r.Severity)
	}
}

// TestPointToPointAttenuationNonDecreasing stretches a flat path from 2 km
// to 300 km for several mast pairs.
func TestPointToPointAttenuationNonDecreasing(t *testing.T) {
	masts := [][2]float64{{10, 10}, {2, 100}, {50, 20}, {2, 3002}}
	for _, m := range masts {
		prev := -1.0
		for d := 2e3; d <= 300e3; d += 1e3 {
			n := int(math.Round(d / 90))
			r, err := PointToPoint(evenProfile(d, n+1), testParams(m[0], m[1], 0.5, 0.5))
			if err != nil {
				t.Fatalf("masts %v, d=%.0f: %v", m, d, err)
			}
			if r.ReferenceAttenuationDB < prev-1e-9 {
				t.Fatalf("masts %v: attenuation fell from %.4f to %.4f at %.0f m", m, prev, r.ReferenceAttenuationDB, d)
			}
			prev = r.ReferenceAttenuationDB
		}
	}
}

func TestPointToPointHillDiffraction(t *testing.T) {
	r, err := PointToPoint(hillProfile(), testParams(10, 10, 0.5, 0.5))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Mode != Diffraction || r.HorizonCount != 2 {
		t.Fatalf("mode = %v with %d horizons, want double horizon diffraction", r.Mode, r.HorizonCount)
	}
	if r.HorizonDistancesM != [2]float64{9900, 9900} {
		t.Fatalf("horizons = %v", r.HorizonDistancesM)
	}
	approx(t, "TerrainIrregularityM", r.TerrainIrregularityM, 580.559286, 1e-3)
	approx(t, "ReferenceAttenuationDB", r.ReferenceAttenuationDB, 37.906033, 1e-3)
	approx(t, "TotalLossDB", r.TotalLossDB, 138.289340, 1e-3)
	if r.PropagationCode() != 9 {
		t.Fatalf("propagation code = %d, want 9", r.PropagationCode())
	}
}

func TestPointToPointShortLineOfSight(t *testing.T) {
	r, err := PointToPoint(flatProfile(101, 100, 0), testParams(10, 10, 0.5, 0.5))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Mode != LineOfSight {
		t.Fatalf("mode = %v", r.Mode)
	}
	approx(t, "ReferenceAttenuationDB", r.ReferenceAttenuationDB, 26.001335, 1e-3)
	approx(t, "TotalLossDB", r.TotalLossDB, 120.378062, 1e-3)
	approx(t, "FreeSpaceLossDB", r.FreeSpaceLossDB, FreeSpaceLossDB(10e3, 125), 1e-12)
}

func TestPointToPointTwoSamples(t *testing.T) {
	r, err := PointToPoint(Profile{SpacingM: 5000, Elevations: []float64{0, 0}}, testParams(10, 10, 0.5, 0.5))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Mode != LineOfSight {
		t.Fatalf("mode = %v", r.Mode)
	}
	approx(t, "TotalLossDB", r.TotalLossDB, 107.495211, 1e-3)
}

func TestPointToPointRejectsBadInput(t *testing.T) {
	if _, err := PointToPoint(Profile{SpacingM: 90}, testParams(10, 10, 0.5, 0.5)); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("empty profile: err = %v", err)
	}
	params := testParams(10, 10, 0.5, 0.5)
	params.FrequencyMHz = 0
	if _, err := PointToPoint(flatProfile(10, 90, 0), params); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("zero frequency: err = %v", err)
	}
}

func TestPointToPointSeverityOutOfRangeRefractivity(t *testing.T) {
	params := testParams(10, 10, 0.5, 0.5)
	params.SurfaceRefractivity = 200
	r, err := PointToPoint(flatProfile(101, 100, 0), params)
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Severity != SeverityOutOfRange {
		t.Fatalf("severity = %v, want out_of_range", r.Severity)
	}
	// The computation still produces its best estimate.
	approx(t, "ReferenceAttenuationDB", r.ReferenceAttenuationDB, 26.166654, 1e-3)
}

func TestPointToPointUnknownClimate(t *testing.T) {
	base, err := PointToPoint(flatProfile(101, 100, 0), testParams(10, 10, 0.5, 0.5))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}

	params := testParams(10, 10, 0.5, 0.5)
	params.Climate = Climate(9)
	r, err := PointToPoint(flatProfile(101, 100, 0), params)
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}
	if r.Severity != SeverityDefaultSubstituted {
		t.Fatalf("severity = %v, want default_substituted", r.Severity)
	}
	if r.TotalLossDB != base.TotalLossDB {
		t.Fatalf("total loss = %.6f, want the continental temperate %.6f", r.TotalLossDB, base.TotalLossDB)
	}
}

// TestSeverityNeverDecreases adds one bad parameter at a time to a clean
// baseline and checks the severity never drops below the baseline.
func TestSeverityNeverDecreases(t *testing.T) {
	profile := flatProfile(101, 100, 0)
	base, err := PointToPoint(profile, testParams(10, 10, 0.5, 0.5))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}

	mutations := map[string]func(*Parameters){
		"refractivity": func(p *Parameters) { p.SurfaceRefractivity = 450 },
		"climate":      func(p *Parameters) { p.Climate = 0 },
		"frequency":    func(p *Parameters) { p.FrequencyMHz = 15000 },
		"height":       func(p *Parameters) { p.TransmitterHeightM = 0.2 },
		"quantile":     func(p *Parameters) { p.Confidence = 0.0001 },
		"variability":  func(p *Parameters) { p.Variability.Base = 7 },
	}
	for name, mutate := range mutations {
		params := testParams(10, 10, 0.5, 0.5)
		mutate(&params)
		r, err := PointToPoint(profile, params)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if r.Severity < base.Severity {
			t.Fatalf("%s: severity %v below baseline %v", name, r.Severity, base.Severity)
		}
		if r.Severity == SeverityOK {
			t.Fatalf("%s: severity not raised", name)
		}
	}
}

// TestPointToPointConcurrent runs the same prediction from many
// goroutines; every result must match the sequential one.
func TestPointToPointConcurrent(t *testing.T) {
	want, err := PointToPoint(hillProfile(), testParams(10, 10, 0.5, 0.5))
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params := testParams(10, 10, 0.5, 0.5)
			if i%2 == 1 {
				params.FrequencyMHz = 300
				results[i], _ = PointToPoint(flatProfile(2778, 90, 0), params)
				return
			}
			results[i], _ = PointToPoint(hillProfile(), params)
		}(i)
	}
	wg.Wait()

	for i := 0; i < len(results); i += 2 {
		if results[i].TotalLossDB != want.TotalLossDB || results[i].Mode != want.Mode {
			t.Fatalf("result %d = %.6f %v, want %.6f %v", i,
				results[i].TotalLossDB, results[i].Mode, want.TotalLossDB, want.Mode)
		}
	}
}

func TestFreeSpaceLoss(t *testing.T) {
	// 32.45 + 20·log10(100) + 20·log10(10)
	approx(t, "FreeSpaceLossDB", FreeSpaceLossDB(10e3, 100), 92.45, 1e-9)
}
