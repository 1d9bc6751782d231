// Package itm implements the Irregular Terrain Model (Longley-Rice) for
// point-to-point and area predictions of VHF/UHF path loss.
//
// Every prediction runs in its own computation context; nothing is cached
// between calls, so predictions may run concurrently.
package itm

import (
	"fmt"
	"strings"
)

// Climate selects the radio climate whose empirical variability curves
// are applied.
type Climate int

const (
	Equatorial Climate = iota + 1
	ContinentalSubtropical
	MaritimeTropical
	Desert
	ContinentalTemperate
	MaritimeTemperateLand
	MaritimeTemperateSea
)

func (c Climate) valid() bool { return c >= Equatorial && c <= MaritimeTemperateSea }

func (c Climate) String() string {
	switch c {
	case Equatorial:
		return "equatorial"
	case ContinentalSubtropical:
		return "continental_subtropical"
	case MaritimeTropical:
		return "maritime_tropical"
	case Desert:
		return "desert"
	case ContinentalTemperate:
		return "continental_temperate"
	case MaritimeTemperateLand:
		return "maritime_temperate_land"
	case MaritimeTemperateSea:
		return "maritime_temperate_sea"
	default:
		return fmt.Sprintf("climate(%d)", int(c))
	}
}

// ParseClimate accepts the names produced by Climate.String.
func ParseClimate(s string) (Climate, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c := Equatorial; c <= MaritimeTemperateSea; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("itm: unknown climate %q", s)
}

// Polarization of the transmitted wave.
type Polarization int

const (
	Horizontal Polarization = iota
	Vertical
)

func (p Polarization) String() string {
	if p == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Mode is the propagation regime that dominates a path.
type Mode int

const (
	LineOfSight Mode = iota
	Diffraction
	Troposcatter
)

func (m Mode) String() string {
	switch m {
	case LineOfSight:
		return "line_of_sight"
	case Diffraction:
		return "diffraction"
	case Troposcatter:
		return "troposcatter"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// BaseVariability is the statistical interpretation of the reliability
// and confidence quantiles.
type BaseVariability int

const (
	// SingleMessage folds time, location and situation variability into
	// one confidence figure.
	SingleMessage BaseVariability = iota
	// Individual takes reliability from time variability alone.
	Individual
	// Mobile combines time and location variability into reliability.
	Mobile
	// Broadcast keeps time and location quantiles separate.
	Broadcast
)

// VariabilityMode selects how the variability model combines its
// deviations.
type VariabilityMode struct {
	Base                   BaseVariability
	NoLocationVariability  bool
	NoSituationVariability bool
}

// DefaultVariability is the mode used for point-to-point predictions:
// mobile service with location variability removed, because the terminal
// locations are known exactly.
var DefaultVariability = VariabilityMode{Base: Mobile, NoLocationVariability: true}

// Parameters are the per-call inputs of a point-to-point prediction.
type Parameters struct {
	// Structural antenna heights above local ground, metres.
	TransmitterHeightM float64
	ReceiverHeightM    float64

	FrequencyMHz float64

	// Ground electrical constants: relative permittivity and
	// conductivity in S/m.
	Permittivity float64
	Conductivity float64

	// SurfaceRefractivity is the sea-level surface refractivity N0 in
	// N-units. It is scaled to the mean path elevation before use.
	SurfaceRefractivity float64

	Climate      Climate
	Polarization Polarization

	// Confidence and Reliability are quantiles in (0,1).
	Confidence  float64
	Reliability float64
	// Location is the location quantile. It only matters in Broadcast
	// mode; zero selects the median.
	Location float64

	Variability VariabilityMode
}

// DefaultParameters returns average-ground, continental temperate
// parameters at 90% confidence and reliability. Heights and frequency are
// left for the caller.
func DefaultParameters() Parameters {
	return Parameters{
		Permittivity:        15,
		Conductivity:        0.005,
		SurfaceRefractivity: 301,
		Climate:             ContinentalTemperate,
		Polarization:        Vertical,
		Confidence:          0.9,
		Reliability:         0.9,
		Variability:         DefaultVariability,
	}
}
