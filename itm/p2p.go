package itm

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrequency is returned for non-positive carrier frequencies.
var ErrInvalidFrequency = errors.New("itm: frequency must be positive")

// Result is the outcome of a point-to-point prediction.
type Result struct {
	// ReferenceAttenuationDB is the median attenuation relative to free
	// space before any statistical adjustment. Never negative.
	ReferenceAttenuationDB float64
	// AttenuationDB is the reference attenuation adjusted for the
	// requested reliability and confidence.
	AttenuationDB float64
	// FreeSpaceLossDB is the free-space basic transmission loss over the
	// path.
	FreeSpaceLossDB float64
	// TotalLossDB is FreeSpaceLossDB + AttenuationDB, the loss a link
	// budget should subtract.
	TotalLossDB float64

	Mode         Mode
	HorizonCount int
	// HorizonDistancesM holds the horizon distance of each terminal that
	// has one; unused entries are zero.
	HorizonDistancesM [2]float64

	DistanceM            float64
	TerrainIrregularityM float64
	EffectiveHeightsM    [2]float64

	Severity Severity
	Warnings []Warning
}

// PropagationCode returns the combined horizon/mode code of the path:
// 0 line of sight, 5 or 6 single horizon diffraction or troposcatter,
// 9 or 10 double horizon diffraction or troposcatter.
func (r Result) PropagationCode() int {
	if r.HorizonCount == 0 {
		return 0
	}
	code := 4 * r.HorizonCount
	if r.Mode == Troposcatter {
		return code + 2
	}
	return code + 1
}

// FreeSpaceLossDB returns the free-space basic transmission loss for a
// path of distanceM metres at freqMHz.
func FreeSpaceLossDB(distanceM, freqMHz float64) float64 {
	return 32.45 + 20*math.Log10(freqMHz) + 20*math.Log10(distanceM/1000)
}

// PointToPoint predicts the path loss between the two ends of profile.
// Inputs outside the model's ranges do not fail the call; they raise the
// result's Severity instead.
func PointToPoint(profile Profile, params Parameters) (Result, error) {
	if err := profile.Validate(); err != nil {
		return Result{}, err
	}
	if !(params.FrequencyMHz > 0) {
		return Result{}, fmt.Errorf("%w: %.3f MHz", ErrInvalidFrequency, params.FrequencyMHz)
	}

	c := &computation{pointToPoint: true}
	c.hg = [2]float64{params.TransmitterHeightM, params.ReceiverHeightM}
	c.setSecondary(params.FrequencyMHz, profile.systemElevation(), params.SurfaceRefractivity,
		params.Polarization, params.Permittivity, params.Conductivity)
	c.stage = stageSecondaryComputed

	c.resolveGeometry(profile)
	aRef := c.referenceAttenuation(c.distance, &c.warnings)

	r := Result{
		ReferenceAttenuationDB: aRef,
		FreeSpaceLossDB:        FreeSpaceLossDB(c.distance, params.FrequencyMHz),
		DistanceM:              c.distance,
		TerrainIrregularityM:   c.deltaH,
		EffectiveHeightsM:      c.he,
	}
	r.Mode, r.HorizonCount, r.HorizonDistancesM = c.classify()

	zt := InverseComplementaryNormal(params.Reliability)
	zc := InverseComplementaryNormal(params.Confidence)
	zl := 0.0
	if params.Location != 0 {
		zl = InverseComplementaryNormal(params.Location)
	}
	v := newVariability(&c.path, params.Climate, params.Variability, &c.warnings)
	r.AttenuationDB = v.apply(aRef, zt, zl, zc, &c.warnings)
	r.TotalLossDB = r.AttenuationDB + r.FreeSpaceLossDB

	r.Severity = c.warnings.Severity()
	r.Warnings = c.warnings.List()
	return r, nil
}

// resolveGeometry derives horizons, terrain irregularity and effective
// antenna heights from the profile.
func (c *computation) resolveGeometry(pr Profile) {
	p := &c.path
	p.distance = pr.DistanceM()
	np := pr.Intervals()
	z := pr.Elevations

	findHorizons(pr, p)

	var xl [2]float64
	for j := range 2 {
		xl[j] = min(15*p.hg[j], 0.1*p.horizon[j])
	}
	xl[1] = p.distance - xl[1]
	p.deltaH = interdecileRange(pr, xl[0], xl[1])

	if p.horizon[0]+p.horizon[1] > 1.5*p.distance {
		// Line of sight: estimate where the horizons would have been
		// from the smooth-earth geometry.
		za, zb := leastSquaresFit(z, pr.SpacingM, xl[0], xl[1])
		p.he[0] = p.hg[0] + dim(z[0], za)
		p.he[1] = p.hg[1] + dim(z[np], zb)
		c.setRoughHorizons()

		if q := p.horizon[0] + p.horizon[1]; q <= p.distance {
			scale := (p.distance / q) * (p.distance / q)
			for j := range 2 {
				p.he[j] *= scale
			}
			c.setRoughHorizons()
		}

		for j := range 2 {
			q := math.Sqrt(2 * p.he[j] / p.gammaE)
			p.horizonAngle[j] = (0.65*p.deltaH*(q/p.horizon[j]-1) - 2*p.he[j]) / q
		}
		return
	}

	za, _ := leastSquaresFit(z, pr.SpacingM, xl[0], 0.9*p.horizon[0])
	_, zb := leastSquaresFit(z, pr.SpacingM, p.distance-0.9*p.horizon[1], xl[1])
	p.he[0] = p.hg[0] + dim(z[0], za)
	p.he[1] = p.hg[1] + dim(z[np], zb)
}

// setRoughHorizons sets the horizon distances expected for the effective
// heights over terrain of irregularity Δh.
func (c *computation) setRoughHorizons() {
	p := &c.path
	for j := range 2 {
		p.horizon[j] = math.Sqrt(2*p.he[j]/p.gammaE) * math.Exp(-0.07*math.Sqrt(p.deltaH/max(p.he[j], 5)))
	}
}

// classify reports the dominant mode and horizon geometry of a primed
// point-to-point computation.
func (c *computation) classify() (Mode, int, [2]float64) {
	p := &c.path
	q := int(p.distance - p.horizonSum)
	if q < 0 {
		return LineOfSight, 0, [2]float64{}
	}

	count, horizons := 2, p.horizon
	if q == 0 {
		count, horizons = 1, [2]float64{p.horizon[0], 0}
	}
	if p.distance <= p.smoothHorizonSum || c.scatter == nil || p.distance <= c.scatter.dx {
		return Diffraction, count, horizons
	}
	return Troposcatter, count, horizons
}
