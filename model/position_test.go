package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestInterpolateEndpoints(t *testing.T) {
	a := Position{Latitude: 47.0, Longitude: 8.0, AltitudeM: 400}
	b := Position{Latitude: 47.5, Longitude: 9.0, AltitudeM: 1400}

	start := a.Interpolate(b, 0)
	end := a.Interpolate(b, 1)
	if math.Abs(start.Latitude-a.Latitude) > 1e-9 || math.Abs(start.Longitude-a.Longitude) > 1e-9 {
		t.Fatalf("Interpolate(0) = %+v, want %+v", start, a)
	}
	if math.Abs(end.Latitude-b.Latitude) > 1e-9 || math.Abs(end.Longitude-b.Longitude) > 1e-9 {
		t.Fatalf("Interpolate(1) = %+v, want %+v", end, b)
	}
	if mid := a.Interpolate(b, 0.5); mid.AltitudeM != 900 {
		t.Fatalf("midpoint altitude = %.1f, want 900", mid.AltitudeM)
	}
}

func TestInterpolateAlongMeridian(t *testing.T) {
	a := Position{Latitude: 10, Longitude: 20}
	b := Position{Latitude: 12, Longitude: 20}
	mid := a.Interpolate(b, 0.25)
	if math.Abs(mid.Latitude-10.5) > 1e-9 || math.Abs(mid.Longitude-20) > 1e-9 {
		t.Fatalf("Interpolate(0.25) = %+v, want lat 10.5 lon 20", mid)
	}
}

func TestInterpolateSamePoint(t *testing.T) {
	a := Position{Latitude: 1, Longitude: 2, AltitudeM: 3}
	if got := a.Interpolate(a, 0.7); got != a {
		t.Fatalf("Interpolate on a zero-length path = %+v, want %+v", got, a)
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Position{Latitude: 47.0, Longitude: 8.0}
	b := Position{Latitude: 47.5, Longitude: 8.0}
	ab, ba := a.DistanceM(b), b.DistanceM(a)
	if math.Abs(ab-ba) > 1e-6 {
		t.Fatalf("DistanceM not symmetric: %.3f vs %.3f", ab, ba)
	}
	// half a degree of latitude is roughly 55.6 km
	if ab < 54e3 || ab > 57e3 {
		t.Fatalf("DistanceM = %.0f m, want about 55600", ab)
	}
}

func TestStationKindJSON(t *testing.T) {
	var s Station
	if err := json.Unmarshal([]byte(`{"id":"ZRH_TWR","kind":"ground_to_air","frequency_mhz":118.1}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Kind != GroundToAir {
		t.Fatalf("Kind = %v, want ground_to_air", s.Kind)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := json.Unmarshal([]byte(`{"id":"x","kind":"satellite"}`), &s); err == nil {
		t.Fatalf("expected an unknown kind to fail")
	}
}

func TestStationValidate(t *testing.T) {
	cases := map[string]Station{
		"no id":        {FrequencyMHz: 118},
		"no frequency": {ID: "a"},
		"latitude":     {ID: "a", FrequencyMHz: 118, Position: Position{Latitude: 91}},
		"polarization": {ID: "a", FrequencyMHz: 118, Polarization: "circular"},
	}
	for name, s := range cases {
		if err := s.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestReceiverFirst(t *testing.T) {
	if AirToAir.ReceiverFirst() || GroundToAir.ReceiverFirst() {
		t.Fatalf("voice transmissions must be sampled transmitter first")
	}
	if !Navigation.ReceiverFirst() || !Beacon.ReceiverFirst() {
		t.Fatalf("navigation aids must be sampled receiver first")
	}
}
