package itm

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfile is returned for profiles with fewer than two samples
// or a non-positive spacing.
var ErrInvalidProfile = errors.New("itm: invalid elevation profile")

// Profile is a terrain elevation profile sampled at uniform spacing along
// the great-circle path. Elevations[0] is the ground under the transmitter
// and the last sample the ground under the receiver.
type Profile struct {
	SpacingM   float64
	Elevations []float64
}

// NewProfile validates and wraps a sampled profile. The elevation slice
// is not copied.
func NewProfile(spacingM float64, elevations []float64) (Profile, error) {
	p := Profile{SpacingM: spacingM, Elevations: elevations}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	if len(p.Elevations) < 2 {
		return fmt.Errorf("%w: %d samples, need at least 2", ErrInvalidProfile, len(p.Elevations))
	}
	if !(p.SpacingM > 0) {
		return fmt.Errorf("%w: spacing %.3f m", ErrInvalidProfile, p.SpacingM)
	}
	return nil
}

// Intervals is the number of sample intervals, one less than the number
// of samples.
func (p Profile) Intervals() int { return len(p.Elevations) - 1 }

// DistanceM is the path length covered by the profile.
func (p Profile) DistanceM() float64 { return float64(p.Intervals()) * p.SpacingM }

// systemElevation is the mean elevation of the central part of the
// profile, used to scale the surface refractivity.
func (p Profile) systemElevation() float64 {
	n := p.Intervals()
	ja := int(3 + 0.1*float64(n))
	jb := n - ja + 6
	sum := 0.0
	for i := ja - 3; i <= jb-3; i++ {
		sum += p.Elevations[i]
	}
	return sum / float64(jb-ja+1)
}

// findHorizons locates the horizon of each terminal by scanning the
// interior samples for the largest rise above the ray leaving the
// antenna. Ties keep the sample met first. Without interior samples both
// horizons are the full path length.
func findHorizons(pr Profile, p *path) {
	n := pr.Intervals()
	z := pr.Elevations
	za := z[0] + p.hg[0]
	zb := z[n] + p.hg[1]
	qc := 0.5 * p.gammaE

	q := qc * p.distance
	p.horizonAngle[1] = (zb - za) / p.distance
	p.horizonAngle[0] = p.horizonAngle[1] - q
	p.horizonAngle[1] = -p.horizonAngle[1] - q
	p.horizon = [2]float64{p.distance, p.distance}

	if n < 2 {
		return
	}

	sa, sb := 0.0, p.distance
	blocked := false
	for i := 1; i < n; i++ {
		sa += pr.SpacingM
		sb -= pr.SpacingM

		if q := z[i] - (qc*sa+p.horizonAngle[0])*sa - za; q > 0 {
			p.horizonAngle[0] += q / sa
			p.horizon[0] = sa
			blocked = true
		}
		if !blocked {
			continue
		}
		if q := z[i] - (qc*sb+p.horizonAngle[1])*sb - zb; q > 0 {
			p.horizonAngle[1] += q / sb
			p.horizon[1] = sb
		}
	}
}

// leastSquaresFit fits a straight line to the samples z (spacing xi)
// between distances x1 and x2 and returns its values at both ends of the
// whole profile.
func leastSquaresFit(z []float64, xi, x1, x2 float64) (z0, zn float64) {
	xn := float64(len(z) - 1)
	xa := float64(int(dim(x1/xi, 0)))
	xb := xn - float64(int(dim(xn, x2/xi)))
	if xb <= xa {
		xa = dim(xa, 1)
		xb = xn - dim(xn, xb+1)
	}

	ja, jb := int(xa), int(xb)
	n := jb - ja
	xa = xb - xa
	x := -0.5 * xa
	xb += x
	a := 0.5 * (z[ja] + z[jb])
	b := 0.5 * (z[ja] - z[jb]) * x
	for i := 2; i <= n; i++ {
		ja++
		x++
		a += z[ja]
		b += z[ja] * x
	}

	a /= xa
	b = b * 12 / ((xa*xa + 2) * xa)
	return a - b*xb, a + b*(xn-xb)
}

// quantile returns the value that would sit at index ir if a were sorted
// in descending order. It partially reorders a in place.
func quantile(a []float64, ir int) float64 {
	m, n := 0, len(a)-1
	k := clamp(ir, 0, n)

	var q float64
	i0, j1 := m, n
	restart := true
	for {
		if restart {
			q = a[k]
			i0, j1 = m, n
		}

		i := i0
		for i <= n && a[i] >= q {
			i++
		}
		if i > n {
			i = n
		}
		j := j1
		for j >= m && a[j] <= q {
			j--
		}
		if j < m {
			j = m
		}

		switch {
		case i < j:
			a[i], a[j] = a[j], a[i]
			i0, j1 = i+1, j-1
			restart = false
		case i < k:
			a[k] = a[i]
			a[i] = q
			m = i + 1
			restart = true
		case j > k:
			a[k] = a[j]
			a[j] = q
			n = j - 1
			restart = true
		default:
			return q
		}
	}
}

// interdecileRange returns the terrain irregularity Δh between distances
// x1 and x2: the spread between the 10% and 90% points of the detrended
// elevations, scaled to an infinitely long path.
func interdecileRange(pr Profile, x1, x2 float64) float64 {
	np := pr.Intervals()
	z := pr.Elevations
	xa := x1 / pr.SpacingM
	xb := x2 / pr.SpacingM
	if xb-xa < 2 {
		return 0
	}

	ka := clamp(int(0.1*(xb-xa+8)), 4, 25)
	n := 10*ka - 5
	kb := n - ka + 1
	sn := float64(n - 1)

	s := make([]float64, n)
	xb = (xb - xa) / sn
	k := int(xa + 1)
	xa -= float64(k)
	for j := range n {
		for xa > 0 && k < np {
			xa--
			k++
		}
		s[j] = z[k] + (z[k]-z[k-1])*xa
		xa += xb
	}

	trend, end := leastSquaresFit(s, 1, 0, sn)
	slope := (end - trend) / sn
	for j := range s {
		s[j] -= trend
		trend += slope
	}

	dh := quantile(s, ka-1) - quantile(s, kb-1)
	return dh / (1 - 0.8*math.Exp(-(x2-x1)/50e3))
}
