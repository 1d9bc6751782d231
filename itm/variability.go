package itm

import "math"

// climateCurves are the empirical coefficients of one radio climate.
type climateCurves struct {
	// median deviation from the reference attenuation
	cv1, cv2, yv1, yv2, yv3 float64
	// time variability below and above the median
	csm1, csm2, ysm1, ysm2, ysm3 float64
	csp1, csp2, ysp1, ysp2, ysp3 float64
	// ducting
	csd1, zd float64
	// frequency factors
	cfm1, cfm2, cfm3 float64
	cfp1, cfp2, cfp3 float64
}

var climateTable = [7]climateCurves{
	Equatorial - 1: {
		-9.67, 12.7, 144.9e3, 190.3e3, 133.8e3,
		2.13, 159.5, 762.2e3, 123.6e3, 94.5e3,
		2.11, 102.3, 636.9e3, 134.8e3, 95.6e3,
		1.224, 1.282,
		1.0, 0.0, 0.0,
		1.0, 0.0, 0.0,
	},
	ContinentalSubtropical - 1: {
		-0.62, 9.19, 228.9e3, 205.2e3, 143.6e3,
		2.66, 7.67, 100.4e3, 172.5e3, 136.4e3,
		6.87, 15.53, 138.7e3, 143.7e3, 98.6e3,
		0.801, 2.161,
		1.0, 0.0, 0.0,
		0.93, 0.31, 2.00,
	},
	MaritimeTropical - 1: {
		1.26, 15.5, 262.6e3, 185.2e3, 99.8e3,
		6.11, 6.65, 138.2e3, 242.2e3, 178.6e3,
		10.08, 9.60, 165.3e3, 225.7e3, 129.7e3,
		1.380, 1.282,
		1.0, 0.0, 0.0,
		1.0, 0.0, 0.0,
	},
	Desert - 1: {
		-9.21, 9.05, 84.1e3, 101.1e3, 98.6e3,
		1.98, 13.11, 139.1e3, 132.7e3, 193.5e3,
		3.68, 159.3, 464.4e3, 93.1e3, 94.2e3,
		1.000, 20.0,
		1.0, 0.0, 0.0,
		0.93, 0.19, 1.79,
	},
	ContinentalTemperate - 1: {
		-0.62, 9.19, 228.9e3, 205.2e3, 143.6e3,
		2.68, 7.16, 93.7e3, 186.8e3, 133.5e3,
		4.75, 8.12, 93.2e3, 135.9e3, 113.4e3,
		1.224, 1.282,
		0.92, 0.25, 1.77,
		0.93, 0.31, 2.00,
	},
	MaritimeTemperateLand - 1: {
		-0.39, 2.86, 141.7e3, 315.9e3, 167.4e3,
		6.86, 10.38, 187.8e3, 169.6e3, 108.9e3,
		8.58, 13.97, 216.0e3, 152.0e3, 122.7e3,
		1.518, 1.282,
		1.0, 0.0, 0.0,
		1.0, 0.0, 0.0,
	},
	MaritimeTemperateSea - 1: {
		3.15, 857.9, 2222e3, 164.8e3, 116.3e3,
		8.51, 169.8, 609.8e3, 119.9e3, 106.6e3,
		8.43, 8.19, 136.2e3, 188.5e3, 122.9e3,
		1.518, 1.282,
		1.0, 0.0, 0.0,
		1.0, 0.0, 0.0,
	},
}

const (
	timeDeviationRatio     = 7.8
	locationDeviationRatio = 24.0
)

// variability is the statistical model of how a particular path deviates
// from the reference attenuation. It is resolved once per computation.
type variability struct {
	mode VariabilityMode
	zd   float64

	vmd  float64 // median deviation
	sgtm float64 // time deviation below the median
	sgtp float64 // time deviation above the median
	sgtd float64 // ducting deviation
	tgtd float64
	sgl  float64 // location deviation
	vs0  float64 // situation variance
}

// newVariability resolves the climate curves for p. An unknown climate
// falls back to continental temperate and an unknown base mode to single
// message; both raise SeverityDefaultSubstituted.
func newVariability(p *path, climate Climate, mode VariabilityMode, w *Warnings) variability {
	if !climate.valid() {
		climate = ContinentalTemperate
		w.Raise(SeverityDefaultSubstituted, "unknown climate, using continental temperate")
	}
	if mode.Base < SingleMessage || mode.Base > Broadcast {
		mode.Base = SingleMessage
		w.Raise(SeverityDefaultSubstituted, "unknown variability mode, using single message")
	}
	cc := climateTable[climate-1]

	q := math.Log(0.133 * p.k)
	gm := cc.cfm1 + cc.cfm2/((cc.cfm3*q*cc.cfm3*q)+1)
	gp := cc.cfp1 + cc.cfp2/((cc.cfp3*q*cc.cfp3*q)+1)

	dexa := math.Sqrt(2*9000e3*p.he[0]) + math.Sqrt(2*9000e3*p.he[1]) + math.Pow(575.7e12/p.k, third)
	var de float64
	if p.distance < dexa {
		de = 130e3 * p.distance / dexa
	} else {
		de = 130e3 + p.distance - dexa
	}

	v := variability{mode: mode, zd: cc.zd}
	v.vmd = curve(cc.cv1, cc.cv2, cc.yv1, cc.yv2, cc.yv3, de)
	v.sgtm = curve(cc.csm1, cc.csm2, cc.ysm1, cc.ysm2, cc.ysm3, de) * gm
	v.sgtp = curve(cc.csp1, cc.csp2, cc.ysp1, cc.ysp2, cc.ysp3, de) * gp
	v.sgtd = v.sgtp * cc.csd1
	v.tgtd = (v.sgtp - v.sgtd) * cc.zd

	if !mode.NoLocationVariability {
		q := (1 - 0.8*math.Exp(-p.distance/50e3)) * p.deltaH * p.k
		v.sgl = 10 * q / (q + 13)
	}
	if !mode.NoSituationVariability {
		v.vs0 = 5 + 3*math.Exp(-de/100e3)
		v.vs0 *= v.vs0
	}
	return v
}

// apply adjusts the reference attenuation aRef for the time, location and
// confidence deviates zt, zl and zc.
func (v variability) apply(aRef, zt, zl, zc float64, w *Warnings) float64 {
	switch v.mode.Base {
	case SingleMessage:
		zt, zl = zc, zc
	case Individual:
		zl = zc
	case Mobile:
		zl = zt
	}
	if math.Abs(zt) > 3.1 || math.Abs(zl) > 3.1 || math.Abs(zc) > 3.1 {
		w.Raise(SeverityMarginal, "quantiles not optimal")
	}

	var sgt float64
	switch {
	case zt < 0:
		sgt = v.sgtm
	case zt <= v.zd:
		sgt = v.sgtp
	default:
		sgt = v.sgtd + v.tgtd/zt
	}
	vs := v.vs0 + (sgt*zt*sgt*zt)/(timeDeviationRatio+zc*zc) +
		(v.sgl*zl*v.sgl*zl)/(locationDeviationRatio+zc*zc)

	var yr, sgc float64
	switch v.mode.Base {
	case SingleMessage:
		sgc = math.Sqrt(sgt*sgt + v.sgl*v.sgl + vs)
	case Individual:
		yr = sgt * zt
		sgc = math.Sqrt(v.sgl*v.sgl + vs)
	case Mobile:
		yr = math.Sqrt(sgt*sgt+v.sgl*v.sgl) * zt
		sgc = math.Sqrt(vs)
	default:
		yr = sgt*zt + v.sgl*zl
		sgc = math.Sqrt(vs)
	}

	a := aRef - v.vmd - yr - sgc*zc
	if a < 0 {
		a = a * (29 - a) / (29 - 10*a)
	}
	return a
}
