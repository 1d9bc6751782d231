package model

import (
	"fmt"
	"strings"
)

// TransmissionKind describes who is transmitting to whom. It decides the
// link-budget bonuses and the orientation of the terrain profile.
type TransmissionKind int

const (
	AirToAir TransmissionKind = iota
	GroundToAir
	Navigation
	Beacon
)

func (k TransmissionKind) String() string {
	switch k {
	case AirToAir:
		return "air_to_air"
	case GroundToAir:
		return "ground_to_air"
	case Navigation:
		return "navigation"
	case Beacon:
		return "beacon"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ReceiverFirst reports whether the terrain profile for this kind runs
// from the receiver to the transmitter. Navigation aids are sampled from
// the aircraft outwards.
func (k TransmissionKind) ReceiverFirst() bool {
	return k == Navigation || k == Beacon
}

// ParseTransmissionKind accepts the names produced by String.
func ParseTransmissionKind(s string) (TransmissionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "air_to_air", "air":
		return AirToAir, nil
	case "ground_to_air", "ground", "atc":
		return GroundToAir, nil
	case "navigation", "nav":
		return Navigation, nil
	case "beacon":
		return Beacon, nil
	default:
		return 0, fmt.Errorf("unknown transmission kind %q", s)
	}
}

func (k TransmissionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TransmissionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseTransmissionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Polarization of a station antenna.
type Polarization string

const (
	PolarizationVertical   Polarization = "vertical"
	PolarizationHorizontal Polarization = "horizontal"
)

// Station is a fixed or airborne transmitter.
type Station struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kind         TransmissionKind `json:"kind"`
	Position     Position         `json:"position"`
	FrequencyMHz float64          `json:"frequency_mhz"`

	// Zero values fall back to the radio configuration.
	TxPowerDBm     float64      `json:"tx_power_dbm,omitempty"`
	AntennaHeightM float64      `json:"antenna_height_m,omitempty"`
	AntennaGainDBi float64      `json:"antenna_gain_dbi,omitempty"`
	LineLossDB     float64      `json:"line_loss_db,omitempty"`
	Polarization   Polarization `json:"polarization,omitempty"`
}

// Validate checks the fields a receive query depends on.
func (s Station) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("station has no ID")
	}
	if !(s.FrequencyMHz > 0) {
		return fmt.Errorf("station %q: frequency %.4f MHz must be positive", s.ID, s.FrequencyMHz)
	}
	if s.Position.Latitude < -90 || s.Position.Latitude > 90 {
		return fmt.Errorf("station %q: latitude %.4f out of range", s.ID, s.Position.Latitude)
	}
	if s.Position.Longitude < -180 || s.Position.Longitude > 180 {
		return fmt.Errorf("station %q: longitude %.4f out of range", s.ID, s.Position.Longitude)
	}
	switch s.Polarization {
	case "", PolarizationVertical, PolarizationHorizontal:
	default:
		return fmt.Errorf("station %q: unknown polarization %q", s.ID, s.Polarization)
	}
	return nil
}
