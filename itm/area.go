package itm

import (
	"fmt"
	"math"
)

// Siting describes how carefully a terminal was placed relative to the
// surrounding terrain.
type Siting int

const (
	SitingRandom Siting = iota
	SitingCareful
	SitingVeryCareful
)

// AreaParameters are the inputs of an area prediction, where no profile
// is known and the terrain is described by its irregularity alone.
type AreaParameters struct {
	TransmitterHeightM float64
	ReceiverHeightM    float64
	TransmitterSiting  Siting
	ReceiverSiting     Siting

	// TerrainIrregularityM is Δh; 90 m describes average rolling
	// terrain.
	TerrainIrregularityM float64

	FrequencyMHz        float64
	Permittivity        float64
	Conductivity        float64
	SurfaceRefractivity float64
	Climate             Climate
	Polarization        Polarization
	Variability         VariabilityMode
}

// Area is a primed area prediction. Loss may be called for any number of
// distances and is safe for concurrent use.
type Area struct {
	params   AreaParameters
	c        computation
	warnings Warnings
}

// NewArea primes an area prediction.
func NewArea(params AreaParameters) (*Area, error) {
	if !(params.FrequencyMHz > 0) {
		return nil, fmt.Errorf("%w: %.3f MHz", ErrInvalidFrequency, params.FrequencyMHz)
	}

	a := &Area{params: params}
	c := &a.c
	c.hg = [2]float64{params.TransmitterHeightM, params.ReceiverHeightM}
	c.deltaH = params.TerrainIrregularityM
	c.setSecondary(params.FrequencyMHz, 0, params.SurfaceRefractivity,
		params.Polarization, params.Permittivity, params.Conductivity)
	c.stage = stageSecondaryComputed

	sites := [2]Siting{params.TransmitterSiting, params.ReceiverSiting}
	for j := range 2 {
		c.he[j] = effectiveHeight(c.hg[j], c.deltaH, sites[j])
	}
	c.setRoughHorizons()
	for j := range 2 {
		q := math.Sqrt(2 * c.he[j] / c.gammaE)
		c.horizonAngle[j] = (0.65*c.deltaH*(q/c.horizon[j]-1) - 2*c.he[j]) / q
	}

	c.prime()
	los := c.fitLineOfSight()
	scatter := c.fitScatter()
	c.los, c.scatter = &los, &scatter
	a.warnings = c.warnings
	return a, nil
}

// effectiveHeight estimates how far above the surrounding terrain a
// terminal sits given its siting.
func effectiveHeight(hg, deltaH float64, s Siting) float64 {
	if s <= SitingRandom {
		return hg
	}
	q := 4.0
	if s != SitingCareful {
		q = 9
	}
	if hg < 5 {
		q *= math.Sin(0.3141593 * hg)
	}
	return hg + (1+q)*math.Exp(-min(20, 2*hg/max(1e-3, deltaH)))
}

// AreaResult is an area prediction at one distance.
type AreaResult struct {
	ReferenceAttenuationDB float64
	AttenuationDB          float64
	FreeSpaceLossDB        float64
	TotalLossDB            float64
	Severity               Severity
	Warnings               []Warning
}

// Loss predicts the loss at distanceM for the time, location and
// confidence quantiles.
func (a *Area) Loss(distanceM, time, location, confidence float64) AreaResult {
	var w Warnings
	w.Merge(a.warnings)

	c := a.c
	c.distance = distanceM
	aRef := c.referenceAttenuation(distanceM, &w)

	v := newVariability(&c.path, a.params.Climate, a.params.Variability, &w)
	att := v.apply(aRef,
		InverseComplementaryNormal(time),
		InverseComplementaryNormal(location),
		InverseComplementaryNormal(confidence), &w)

	fs := FreeSpaceLossDB(distanceM, a.params.FrequencyMHz)
	return AreaResult{
		ReferenceAttenuationDB: aRef,
		AttenuationDB:          att,
		FreeSpaceLossDB:        fs,
		TotalLossDB:            fs + att,
		Severity:               w.Severity(),
		Warnings:               w.List(),
	}
}

// ReferenceAttenuation returns the median attenuation relative to free
// space at distanceM.
func (a *Area) ReferenceAttenuation(distanceM float64) float64 {
	var w Warnings
	c := a.c
	return c.referenceAttenuation(distanceM, &w)
}
