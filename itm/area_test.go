package itm

import (
	"sync"
	"testing"
)

func rollingArea(t *testing.T) *Area {
	t.Helper()
	a, err := NewArea(AreaParameters{
		TransmitterHeightM:   10,
		ReceiverHeightM:      10,
		TerrainIrregularityM: 90,
		FrequencyMHz:         125,
		Permittivity:         15,
		Conductivity:         0.005,
		SurfaceRefractivity:  301,
		Climate:              ContinentalTemperate,
		Polarization:         Vertical,
		Variability:          VariabilityMode{Base: Mobile},
	})
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	return a
}

func TestAreaLossMatchesReference(t *testing.T) {
	a := rollingArea(t)
	cases := []struct {
		d, aref, total float64
	}{
		{1e3, 11.908186, 86.296283},
		{20e3, 31.030354, 131.387925},
		{100e3, 55.105916, 167.501245},
		{300e3, 71.171615, 192.217971},
	}
	for _, tc := range cases {
		r := a.Loss(tc.d, 0.5, 0.5, 0.5)
		approx(t, "ReferenceAttenuationDB", r.ReferenceAttenuationDB, tc.aref, 1e-3)
		approx(t, "TotalLossDB", r.TotalLossDB, tc.total, 1e-3)
		if r.Severity != SeverityOK {
			t.Fatalf("d=%.0f: severity %v, warnings %v", tc.d, r.Severity, r.Warnings)
		}
	}
}

// TestAreaAttenuationNonDecreasing sweeps the distance from the near field
// out to 500 km.
func TestAreaAttenuationNonDecreasing(t *testing.T) {
	a := rollingArea(t)
	prev := a.ReferenceAttenuation(1e3)
	for d := 2e3; d <= 500e3; d += 1e3 {
		cur := a.ReferenceAttenuation(d)
		if cur < prev {
			t.Fatalf("attenuation fell from %.4f to %.4f at %.0f m", prev, cur, d)
		}
		prev = cur
	}
}

// TestAreaAttenuationVanishesNearZero checks that very short paths reduce
// to free space.
func TestAreaAttenuationVanishesNearZero(t *testing.T) {
	a := rollingArea(t)
	if got := a.ReferenceAttenuation(10); got > 1e-6 {
		t.Fatalf("A_ref(10 m) = %.6f, want 0", got)
	}
	if got := a.ReferenceAttenuation(100); got > 1 {
		t.Fatalf("A_ref(100 m) = %.6f, want < 1 dB", got)
	}
	r := a.Loss(100, 0.5, 0.5, 0.5)
	if r.Severity != SeverityOutOfRange {
		t.Fatalf("severity at 100 m = %v, want out_of_range", r.Severity)
	}
}

func TestAreaSitingRaisesEffectiveHeight(t *testing.T) {
	a, err := NewArea(AreaParameters{
		TransmitterHeightM:   10,
		ReceiverHeightM:      10,
		TransmitterSiting:    SitingCareful,
		ReceiverSiting:       SitingVeryCareful,
		TerrainIrregularityM: 90,
		FrequencyMHz:         125,
		Permittivity:         15,
		Conductivity:         0.005,
		SurfaceRefractivity:  301,
		Climate:              ContinentalTemperate,
		Polarization:         Vertical,
		Variability:          VariabilityMode{Base: Broadcast},
	})
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	approx(t, "he[0]", a.c.he[0], 14.0037, 1e-3)
	approx(t, "he[1]", a.c.he[1], 18.0074, 1e-3)

	r := a.Loss(50e3, 0.9, 0.8, 0.7)
	approx(t, "ReferenceAttenuationDB", r.ReferenceAttenuationDB, 33.545295, 1e-3)
	approx(t, "TotalLossDB", r.TotalLossDB, 155.864708, 1e-3)
}

func TestAreaConcurrentLoss(t *testing.T) {
	a := rollingArea(t)
	want := a.Loss(80e3, 0.5, 0.5, 0.5).TotalLossDB

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := 1e3; d < 200e3; d += 7e3 {
				a.Loss(d, 0.5, 0.5, 0.5)
			}
		}()
	}
	wg.Wait()

	if got := a.Loss(80e3, 0.5, 0.5, 0.5).TotalLossDB; got != want {
		t.Fatalf("loss after concurrent use = %.6f, want %.6f", got, want)
	}
}

func TestNewAreaRejectsFrequency(t *testing.T) {
	if _, err := NewArea(AreaParameters{}); err == nil {
		t.Fatalf("NewArea with zero frequency succeeded")
	}
}
