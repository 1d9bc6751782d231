package itm

import (
	"errors"
	"math"
	"sort"
	"testing"
)

func flatProfile(n int, spacing, elevation float64) Profile {
	z := make([]float64, n)
	for i := range z {
		z[i] = elevation
	}
	return Profile{SpacingM: spacing, Elevations: z}
}

// hillProfile is a 20 km path at 100 m spacing over a 400 m gaussian hill
// centred on the path, on a 100 m plateau.
func hillProfile() Profile {
	z := make([]float64, 201)
	for i := range z {
		x := float64(i) / 200
		z[i] = 100 + 400*math.Exp(-math.Pow((x-0.5)/0.08, 2))
	}
	return Profile{SpacingM: 100, Elevations: z}
}

func TestNewProfileValidates(t *testing.T) {
	if _, err := NewProfile(90, []float64{1}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("single sample: err = %v, want ErrInvalidProfile", err)
	}
	if _, err := NewProfile(0, []float64{1, 2}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("zero spacing: err = %v, want ErrInvalidProfile", err)
	}
	if _, err := NewProfile(math.NaN(), []float64{1, 2}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("NaN spacing: err = %v, want ErrInvalidProfile", err)
	}
	p, err := NewProfile(90, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	if p.Intervals() != 2 || p.DistanceM() != 180 {
		t.Fatalf("intervals=%d distance=%.1f", p.Intervals(), p.DistanceM())
	}
}

func TestQuantileSelectsInPlace(t *testing.T) {
	a := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3}
	if got := quantile(a, 2); got != 5 {
		t.Fatalf("quantile(k=2) = %g, want 5", got)
	}
	want := []float64{9, 6, 5, 5, 4, 1, 2, 1, 3, 3}
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("reordered = %v, want %v", a, want)
		}
	}
}

func TestQuantileMatchesSortedOrder(t *testing.T) {
	base := []float64{7, -2, 3.5, 3.5, 0, 12, -8, 4, 4, 1, 6}
	sorted := append([]float64(nil), base...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	for k := range base {
		a := append([]float64(nil), base...)
		if got := quantile(a, k); got != sorted[k] {
			t.Fatalf("quantile(k=%d) = %g, want %g", k, got, sorted[k])
		}
	}

	// Indices outside the slice clamp to its ends.
	a := append([]float64(nil), base...)
	if got := quantile(a, -3); got != sorted[0] {
		t.Fatalf("quantile(k=-3) = %g, want %g", got, sorted[0])
	}
	a = append([]float64(nil), base...)
	if got := quantile(a, 99); got != sorted[len(sorted)-1] {
		t.Fatalf("quantile(k=99) = %g, want %g", got, sorted[len(sorted)-1])
	}
}

func TestLeastSquaresFit(t *testing.T) {
	z0, zn := leastSquaresFit([]float64{1, 2, 3, 4, 5}, 10, 0, 40)
	approx(t, "linear z0", z0, 1, 1e-12)
	approx(t, "linear zn", zn, 5, 1e-12)

	z0, zn = leastSquaresFit([]float64{0, 3, 1, 4, 2, 6}, 10, 0, 50)
	approx(t, "mixed z0", z0, 0.933333, 1e-6)
	approx(t, "mixed zn", zn, 4.266667, 1e-6)
}

func TestInterdecileRangeFlatIsZero(t *testing.T) {
	for _, elev := range []float64{0, 250} {
		p := flatProfile(556, 90, elev)
		if dh := interdecileRange(p, 0, p.DistanceM()); dh != 0 {
			t.Fatalf("flat profile at %.0f m: Δh = %g, want 0", elev, dh)
		}
	}
}

func TestInterdecileRangeSlopeIsZero(t *testing.T) {
	// A uniform slope is removed by the detrending.
	z := make([]float64, 300)
	for i := range z {
		z[i] = 2 * float64(i)
	}
	p := Profile{SpacingM: 100, Elevations: z}
	if dh := interdecileRange(p, 0, p.DistanceM()); math.Abs(dh) > 1e-9 {
		t.Fatalf("sloped profile: Δh = %g, want 0", dh)
	}
}

func TestInterdecileRangeShortWindow(t *testing.T) {
	p := hillProfile()
	if dh := interdecileRange(p, 1000, 1150); dh != 0 {
		t.Fatalf("window shorter than two samples: Δh = %g, want 0", dh)
	}
}

func TestFindHorizonsTwoSamples(t *testing.T) {
	p := &path{distance: 5000, hg: [2]float64{10, 10}, gammaE: 157e-9}
	findHorizons(Profile{SpacingM: 5000, Elevations: []float64{0, 0}}, p)
	if p.horizon[0] != 5000 || p.horizon[1] != 5000 {
		t.Fatalf("horizons = %v, want both 5000", p.horizon)
	}
}

func TestFindHorizonsHill(t *testing.T) {
	pr := hillProfile()
	p := &path{distance: pr.DistanceM(), hg: [2]float64{10, 10}, gammaE: 1.2e-7}
	findHorizons(pr, p)
	if p.horizon[0] != 9900 || p.horizon[1] != 9900 {
		t.Fatalf("horizons = %v, want the hill flank at 9900 m from each end", p.horizon)
	}
	if p.horizonAngle[0] <= 0 || p.horizonAngle[1] <= 0 {
		t.Fatalf("horizon angles = %v, want both raised by the hill", p.horizonAngle)
	}
}

func TestSystemElevation(t *testing.T) {
	p := flatProfile(101, 100, 42)
	approx(t, "systemElevation", p.systemElevation(), 42, 1e-12)
}
