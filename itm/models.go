package itm

import (
	"math"
	"math/cmplx"
)

// line is an attenuation model linear in distance.
type line struct {
	slope     float64
	intercept float64
}

func (l line) at(d float64) float64 { return l.intercept + l.slope*d }

// diffractionModel holds the per-path constants of the diffraction
// attenuation. It is built by primeDiffraction and then evaluated at any
// number of distances beyond the horizon.
type diffractionModel struct {
	wd1 float64
	xd1 float64
	afo float64
	qk  float64
	aht float64
	xht float64
}

// primeDiffraction computes the distance-independent part of the
// diffraction attenuation for p. pointToPoint adds the terminal height
// offset used when the horizons come from a measured profile.
func primeDiffraction(p *path, pointToPoint bool) diffractionModel {
	const (
		roughnessScale = 50e3
		roughnessH     = 16.0
		clutterAlpha   = 4.77e-4
	)

	var m diffractionModel

	q := p.hg[0] * p.hg[1]
	qk := p.he[0]*p.he[1] - q
	if pointToPoint {
		q += 10
	}
	m.wd1 = math.Sqrt(1 + qk/q)
	m.xd1 = p.horizonSum + p.thetaE/p.gammaE

	q = (1 - 0.8*math.Exp(-p.smoothHorizonSum/roughnessScale)) * p.deltaH
	q *= 0.78 * math.Exp(-math.Pow(q/roughnessH, 0.25))
	m.afo = min(15, 2.171*math.Log(1+clutterAlpha*p.hg[0]*p.hg[1]*p.k*q))

	m.qk = 1 / cmplx.Abs(p.zg)
	m.aht = 20
	for j := range 2 {
		gammaRecip := 0.5 * p.horizon[j] * p.horizon[j] / p.he[j]
		alpha := math.Pow(gammaRecip*p.k, third)
		k := m.qk / alpha
		x := 151.03 * (1.607 - k) * alpha * p.horizon[j] / gammaRecip
		m.xht += x
		m.aht += heightGain(x, k)
	}
	return m
}

// attenuation blends double knife-edge and smooth rounded-earth
// diffraction at distance s.
func (m diffractionModel) attenuation(p *path, s float64) float64 {
	theta := p.thetaE + s*p.gammaE
	ds := s - p.horizonSum
	q := 0.0795775 * p.k * ds * theta * theta
	knife := knifeEdge(q*p.horizon[0]/(ds+p.horizon[0])) +
		knifeEdge(q*p.horizon[1]/(ds+p.horizon[1]))

	gammaRecip := ds / theta
	alpha := math.Pow(gammaRecip*p.k, third)
	k := m.qk / alpha
	q = 151.03*(1.607-k)*alpha*theta + m.xht
	rounded := 0.05751*q - 4.343*math.Log(q) - m.aht

	q = (m.wd1 + m.xd1/s) * min((1-0.8*math.Exp(-s/50e3))*p.deltaH*p.k, 6283.2)
	w := 25.1 / (25.1 + math.Sqrt(q))
	return (1-w)*knife + w*rounded + m.afo
}

// lineOfSightModel blends two-ray plane-earth fields with the extrapolated
// diffraction line inside the horizon.
type lineOfSightModel struct {
	wls float64
}

func primeLineOfSight(p *path) lineOfSightModel {
	const d1r = 1 / 47.7
	return lineOfSightModel{
		wls: d1r / (d1r + p.k*p.deltaH/max(10e3, p.smoothHorizonSum)),
	}
}

func (m lineOfSightModel) attenuation(p *path, diffraction line, d float64) float64 {
	q := (1 - 0.8*math.Exp(-d/50e3)) * p.deltaH
	s := 0.78 * q * math.Exp(-math.Pow(q/16, 0.25))
	q = p.he[0] + p.he[1]
	sps := q / math.Sqrt(d*d+q*q)
	spsc := complex(sps, 0)

	r := (spsc - p.zg) / (spsc + p.zg) * complex(math.Exp(-min(10, p.k*s*sps)), 0)
	q = absSquared(r)
	if q < 0.25 || q < sps {
		r *= complex(math.Sqrt(sps/q), 0)
	}

	extrapolated := diffraction.at(d)
	q = p.k * p.he[0] * p.he[1] * 2 / d
	if q > math.Pi/2 {
		q = math.Pi - (math.Pi/2)*(math.Pi/2)/q
	}
	twoRay := -4.343 * math.Log(absSquared(complex(math.Cos(q), -math.Sin(q))+r))
	return (twoRay-extrapolated)*m.wls + extrapolated
}

func absSquared(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// scatterModel holds the per-path constants of the troposcatter
// attenuation.
type scatterModel struct {
	ad  float64
	rr  float64
	etq float64
}

func primeScatter(p *path) scatterModel {
	m := scatterModel{
		ad: p.horizon[0] - p.horizon[1],
		rr: p.he[1] / p.he[0],
	}
	if m.ad < 0 {
		m.ad = -m.ad
		m.rr = 1 / m.rr
	}
	m.etq = (5.67e-6*p.ns-2.32e-3)*p.ns + 0.031
	return m
}

// scatterPair is a pair of distances with far >= near. The frequency-gain
// term of the near distance depends on the one computed for the far
// distance, so the pair fixes the evaluation order.
type scatterPair struct {
	far  float64
	near float64
}

func newScatterPair(a, b float64) scatterPair {
	if a < b {
		a, b = b, a
	}
	return scatterPair{far: a, near: b}
}

// attenuationPair evaluates the scatter attenuation at both distances of
// pair. ok is false when the scattering geometry is undefined, in which
// case troposcatter must not be used for the path.
func (m scatterModel) attenuationPair(p *path, pair scatterPair) (far, near float64, ok bool) {
	h0s := -15.0
	far, okFar := m.attenuation(p, pair.far, &h0s)
	near, okNear := m.attenuation(p, pair.near, &h0s)
	return far, near, okFar && okNear
}

func (m scatterModel) attenuation(p *path, s float64, h0s *float64) (float64, bool) {
	var h0 float64
	if *h0s > 15 {
		h0 = *h0s
	} else {
		thetaTick := p.horizonAngle[0] + p.horizonAngle[1] + p.gammaE*s
		r2 := 2 * p.k * thetaTick
		r1 := r2 * p.he[0]
		r2 *= p.he[1]
		if r1 < 0.2 && r2 < 0.2 {
			return 0, false
		}

		ss := (s - m.ad) / (s + m.ad)
		q := m.rr / ss
		ss = max(0.1, ss)
		q = clamp(q, 0.1, 10)
		z0 := (s - m.ad) * (s + m.ad) * thetaTick * 0.25 / s
		t := min(1.7, z0/8e3)
		t = t * t * t * t * t * t
		et := (m.etq*math.Exp(-t) + 1) * z0 / 1.7556e3

		ett := max(et, 1)
		h0 = (scatterFrequencyGain(r1, ett) + scatterFrequencyGain(r2, ett)) * 0.5
		h0 += min(h0, (1.38-math.Log(ett))*math.Log(ss)*math.Log(q)*0.49)
		h0 = dim(h0, 0)
		if et < 1 {
			g := (1 + 1.4142/r1) * (1 + 1.4142/r2)
			h0 = et*h0 + (1-et)*4.343*math.Log(g*g*(r1+r2)/(r1+r2+2.8284))
		}
		if h0 > 15 && *h0s >= 0 {
			h0 = *h0s
		}
	}
	*h0s = h0

	theta := p.thetaE + s*p.gammaE
	return 4.343*math.Log(p.k*47.7*theta*theta*theta*theta) +
		scatterAngleDistance(theta*s) -
		0.1*(p.ns-301)*math.Exp(-theta*s/40e3) +
		h0, true
}
