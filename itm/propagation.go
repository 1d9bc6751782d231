package itm

import (
	"math"
	"math/cmplx"
)

// path is the geometry and radio constants of one prediction.
type path struct {
	distance float64

	hg           [2]float64 // structural antenna heights
	he           [2]float64 // effective antenna heights
	horizon      [2]float64 // horizon distances
	horizonAngle [2]float64 // horizon elevation angles

	k      float64    // wave number
	deltaH float64    // terrain irregularity
	ns     float64    // surface refractivity
	gammaE float64    // effective earth curvature
	zg     complex128 // ground transfer impedance

	smoothHorizon    [2]float64
	smoothHorizonSum float64
	horizonSum       float64
	thetaE           float64
}

// setSecondary derives the wave number, surface refractivity at the system
// elevation zsys, effective earth curvature and ground impedance.
func (p *path) setSecondary(freqMHz, zsys, n0 float64, pol Polarization, eps, sgm float64) {
	p.k = freqMHz / referenceFrequencyMHz

	p.ns = n0
	if zsys != 0 {
		p.ns *= math.Exp(-zsys / 9.46e3)
	}
	p.gammaE = 157e-9 * (1 - 0.04665*math.Exp(p.ns/179.3))

	zq := complex(eps, 376.62*sgm/p.k)
	p.zg = cmplx.Sqrt(zq - 1)
	if pol != Horizontal {
		p.zg /= zq
	}
}

type stage int

const (
	stageUninitialized stage = iota
	stageSecondaryComputed
	stagePrimed
)

// lineOfSightFit is the reference attenuation inside the smooth-earth
// horizon: ael + ak1·d + ak2·ln d.
type lineOfSightFit struct {
	ael float64
	ak1 float64
	ak2 float64
}

func (f lineOfSightFit) at(d float64) float64 {
	return f.ael + f.ak1*d + f.ak2*math.Log(d)
}

// scatterFit is the reference attenuation beyond the horizon: the
// diffraction line up to dx, the scatter line after it.
type scatterFit struct {
	scatter line
	dx      float64
}

// computation carries all state of one prediction. It is never shared
// between predictions.
type computation struct {
	path

	stage        stage
	pointToPoint bool
	warnings     Warnings

	diffraction     diffractionModel
	diffractionLine line
	xae             float64
	dmin            float64

	los     *lineOfSightFit
	scatter *scatterFit
}

// prime validates the parameters and computes the diffraction line that
// anchors both the line-of-sight and the scatter fits.
func (c *computation) prime() {
	p := &c.path
	for j := range 2 {
		p.smoothHorizon[j] = math.Sqrt(2 * p.he[j] / p.gammaE)
	}
	p.smoothHorizonSum = p.smoothHorizon[0] + p.smoothHorizon[1]
	p.horizonSum = p.horizon[0] + p.horizon[1]
	p.thetaE = max(p.horizonAngle[0]+p.horizonAngle[1], -p.horizonSum*p.gammaE)

	c.checkParameters()

	c.dmin = math.Abs(p.he[0]-p.he[1]) / 200e-3

	c.diffraction = primeDiffraction(p, c.pointToPoint)
	c.xae = math.Pow(p.k*p.gammaE*p.gammaE, -third)
	d3 := max(p.smoothHorizonSum, 1.3787*c.xae+p.horizonSum)
	d4 := d3 + 2.7574*c.xae
	a3 := c.diffraction.attenuation(p, d3)
	a4 := c.diffraction.attenuation(p, d4)
	c.diffractionLine.slope = (a4 - a3) / (d4 - d3)
	c.diffractionLine.intercept = a3 - c.diffractionLine.slope*d3

	c.stage = stagePrimed
}

func (c *computation) checkParameters() {
	p := &c.path
	w := &c.warnings

	if p.k < 0.838 || p.k > 210 {
		w.Raise(SeverityMarginal, "frequency not optimal")
	}

	switch {
	case p.ns < 250 || p.ns > 400:
		w.Raise(SeverityOutOfRange, "surface refractivity out of bounds")
	case p.gammaE < 75e-9 || p.gammaE > 250e-9:
		w.Raise(SeverityOutOfRange, "earth curvature out of bounds")
	case real(p.zg) <= math.Abs(imag(p.zg)):
		w.Raise(SeverityOutOfRange, "ground impedance out of bounds")
	case p.k < 0.419 || p.k > 420:
		w.Raise(SeverityOutOfRange, "frequency out of bounds")
	default:
		for j := range 2 {
			if p.hg[j] < 1 || p.hg[j] > 1000 {
				w.Raise(SeverityMarginal, "antenna height not optimal")
			}
			if math.Abs(p.horizonAngle[j]) > 200e-3 {
				w.Raise(SeverityCombinationOutOfRange, "horizon elevation angle implausible")
			}
			if p.horizon[j] < 0.1*p.smoothHorizon[j] || p.horizon[j] > 3*p.smoothHorizon[j] {
				w.Raise(SeverityCombinationOutOfRange, "horizon distance implausible")
			}
			if p.hg[j] < 0.5 || p.hg[j] > 3000 {
				w.Raise(SeverityOutOfRange, "antenna height out of bounds")
			}
		}
	}
}

func (c *computation) checkDistance(d float64, w *Warnings) {
	if d <= 0 {
		return
	}
	if d > 1000e3 {
		w.Raise(SeverityMarginal, "distance not optimal")
	}
	if d < c.dmin {
		w.Raise(SeverityCombinationOutOfRange, "distance too small")
	}
	if d < 1e3 || d > 2000e3 {
		w.Raise(SeverityOutOfRange, "distance out of bounds")
	}
}

// fitLineOfSight builds the line-of-sight reference attenuation from up
// to three samples of the two-ray model, falling back to a two-point
// linear fit when the three-point fit has a negative slope.
func (c *computation) fitLineOfSight() lineOfSightFit {
	p := &c.path
	emd, aed := c.diffractionLine.slope, c.diffractionLine.intercept
	model := primeLineOfSight(p)

	d2 := p.smoothHorizonSum
	a2 := c.diffractionLine.at(d2)
	d0 := 1.908 * p.k * p.he[0] * p.he[1]
	var d1 float64
	if aed >= 0 {
		d0 = min(d0, 0.5*p.horizonSum)
		d1 = d0 + 0.25*(p.horizonSum-d0)
	} else {
		d1 = max(-aed/emd, 0.25*p.horizonSum)
	}
	a1 := model.attenuation(p, c.diffractionLine, d1)

	var f lineOfSightFit
	fitted := false
	if d0 < d1 {
		a0 := model.attenuation(p, c.diffractionLine, d0)
		q := math.Log(d2 / d0)
		f.ak2 = max(0, ((d2-d0)*(a1-a0)-(d1-d0)*(a2-a0))/((d2-d0)*math.Log(d1/d0)-(d1-d0)*q))
		fitted = aed >= 0 || f.ak2 > 0
		if fitted {
			f.ak1 = (a2 - a0 - f.ak2*q) / (d2 - d0)
			if f.ak1 < 0 {
				f.ak1 = 0
				f.ak2 = dim(a2, a0) / q
				if f.ak2 == 0 {
					f.ak1 = emd
				}
			}
		}
	}
	if !fitted {
		f.ak1 = dim(a2, a1) / (d2 - d1)
		f.ak2 = 0
		if f.ak1 == 0 {
			f.ak1 = emd
		}
	}
	f.ael = a2 - f.ak1*d2 - f.ak2*math.Log(d2)
	return f
}

// fitScatter finds the scatter line and the distance dx at which it takes
// over from the diffraction line.
func (c *computation) fitScatter() scatterFit {
	const ds = 200e3
	p := &c.path
	emd, aed := c.diffractionLine.slope, c.diffractionLine.intercept

	d5 := p.horizonSum + ds
	d6 := d5 + ds
	a6, a5, ok := primeScatter(p).attenuationPair(p, newScatterPair(d6, d5))
	if !ok {
		return scatterFit{scatter: c.diffractionLine, dx: 10e6}
	}

	ems := (a6 - a5) / ds
	dx := max(p.smoothHorizonSum,
		max(p.horizonSum+0.3*c.xae*math.Log(47.7*p.k), (a5-aed-ems*d5)/(emd-ems)))
	return scatterFit{
		scatter: line{slope: ems, intercept: (emd-ems)*dx + aed},
		dx:      dx,
	}
}

// referenceAttenuation returns the median attenuation relative to free
// space at distance d, clamped to be non-negative. Distance checks are
// raised on w.
func (c *computation) referenceAttenuation(d float64, w *Warnings) float64 {
	if c.stage < stagePrimed {
		c.prime()
	}
	c.checkDistance(d, w)

	p := &c.path
	var a float64
	if d < p.smoothHorizonSum {
		if c.los == nil {
			f := c.fitLineOfSight()
			c.los = &f
		}
		if d > 0 {
			a = c.los.at(d)
		}
	}
	if d <= 0 || d >= p.smoothHorizonSum {
		if c.scatter == nil {
			f := c.fitScatter()
			c.scatter = &f
		}
		if d > c.scatter.dx {
			a = c.scatter.scatter.at(d)
		} else {
			a = c.diffractionLine.at(d)
		}
	}
	return max(a, 0)
}
