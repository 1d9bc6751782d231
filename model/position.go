package model

import (
	"math"

	"github.com/skypies/geo"
)

// Position is a geodetic position. AltitudeM is metres above mean sea
// level.
type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	AltitudeM float64 `json:"alt_m"`
}

// Latlong drops the altitude.
func (p Position) Latlong() geo.Latlong {
	return geo.Latlong{Lat: p.Latitude, Long: p.Longitude}
}

// DistanceM is the great-circle ground distance to other.
func (p Position) DistanceM(other Position) float64 {
	return p.Latlong().DistKM(other.Latlong()) * 1000
}

// BearingTo is the initial great-circle bearing towards other, degrees
// clockwise from true north.
func (p Position) BearingTo(other Position) float64 {
	return p.Latlong().BearingTowards(other.Latlong())
}

// Interpolate returns the point a fraction f of the way along the great
// circle from p to other. Altitude is interpolated linearly.
func (p Position) Interpolate(other Position, f float64) Position {
	lat1, lon1 := radians(p.Latitude), radians(p.Longitude)
	lat2, lon2 := radians(other.Latitude), radians(other.Longitude)

	// central angle
	d := 2 * math.Asin(math.Sqrt(haversine(lat2-lat1)+
		math.Cos(lat1)*math.Cos(lat2)*haversine(lon2-lon1)))
	alt := p.AltitudeM + f*(other.AltitudeM-p.AltitudeM)
	if d == 0 {
		return Position{Latitude: p.Latitude, Longitude: p.Longitude, AltitudeM: alt}
	}

	a := math.Sin((1-f)*d) / math.Sin(d)
	b := math.Sin(f*d) / math.Sin(d)
	x := a*math.Cos(lat1)*math.Cos(lon1) + b*math.Cos(lat2)*math.Cos(lon2)
	y := a*math.Cos(lat1)*math.Sin(lon1) + b*math.Cos(lat2)*math.Sin(lon2)
	z := a*math.Sin(lat1) + b*math.Sin(lat2)

	return Position{
		Latitude:  degrees(math.Atan2(z, math.Hypot(x, y))),
		Longitude: degrees(math.Atan2(y, x)),
		AltitudeM: alt,
	}
}

func haversine(theta float64) float64 {
	s := math.Sin(theta / 2)
	return s * s
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Attitude is the own-ship orientation.
type Attitude struct {
	RollDeg    float64 `json:"roll_deg"`
	PitchDeg   float64 `json:"pitch_deg"`
	HeadingDeg float64 `json:"heading_deg"`
}
