package core

import (
	"math"

	"github.com/signalsfoundry/radioprop/itm"
)

// segment is a run of profile samples between two ray endpoints. The
// endpoints are shared with the neighbouring segments; only the samples
// strictly between them are tested for clutter.
type segment struct {
	start int
	end   int
}

// segmentBounds splits a profile of n intervals at its horizon points.
// Without horizons the whole path is one segment; each horizon adds a
// break at the obstruction. horizons holds the distance of the first
// horizon from the transmitter end and, for a second horizon, its
// distance from the receiver end. The segments always run from 0 to n
// with no gaps or overlaps.
func segmentBounds(n int, spacingM float64, horizons []float64) []segment {
	if n < 2 || len(horizons) == 0 {
		return []segment{{0, n}}
	}

	breaks := make([]int, 0, 2)
	breaks = append(breaks, min(max(int(math.Round(horizons[0]/spacingM)), 1), n-1))
	if len(horizons) > 1 {
		b := min(max(n-int(math.Round(horizons[1]/spacingM)), 1), n-1)
		breaks = append(breaks, max(b, breaks[0]))
	}

	segs := make([]segment, 0, 3)
	start := 0
	for _, b := range breaks {
		if b > start {
			segs = append(segs, segment{start, b})
			start = b
		}
	}
	return append(segs, segment{start, n})
}

// ClutterLoss estimates the extra attenuation from vegetation and
// buildings intruding into the first Fresnel zone of the path. The
// profile runs from the transmitter (heights[0] above ground) to the
// receiver (heights[1]); materials holds one tag per profile sample.
// Diffraction paths are split at their horizons and each segment is
// tested against the ray between its own endpoints. Troposcatter paths
// carry no clutter loss.
func ClutterLoss(freqMHz float64, profile itm.Profile, materials []string, heights [2]float64,
	mode itm.Mode, horizons []float64, table MaterialTable) float64 {
	if mode == itm.Troposcatter {
		return 0
	}
	n := profile.Intervals()
	if mode == itm.LineOfSight {
		horizons = nil
	}

	loss := 0.0
	for _, s := range segmentBounds(n, profile.SpacingM, horizons) {
		loss += segmentClutterLoss(freqMHz, profile, materials, heights, s, table)
	}
	return loss
}

func segmentClutterLoss(freqMHz float64, profile itm.Profile, materials []string, heights [2]float64,
	s segment, table MaterialTable) float64 {
	z := profile.Elevations
	xi := profile.SpacingM
	n := profile.Intervals()
	material := func(i int) Material {
		if i >= len(materials) {
			return Material{}
		}
		return table.Lookup(materials[i])
	}

	// Terminals radiate from the antenna; horizon points from the top of
	// their clutter.
	top := func(i int) float64 {
		switch i {
		case 0:
			return z[0] + heights[0]
		case n:
			return z[n] + heights[1]
		default:
			return z[i] + material(i).HeightM
		}
	}
	from, to := top(s.start), top(s.end)
	m := s.end - s.start
	lengthKM := float64(m) * xi / 1000

	loss := 0.0
	for j := 1; j < m; j++ {
		k := s.start + j
		c := material(k)
		if c.HeightM <= 0 || c.Density <= 0 {
			continue
		}

		d1 := float64(j) * xi / 1000
		d2 := float64(m-j) * xi / 1000
		fresnel := 548 * math.Sqrt(d1*d2/(lengthKM*freqMHz))
		ray := from + (to-from)*float64(j)/float64(m)

		clearance := ray - (z[k] + c.HeightM) - 0.8*fresnel
		if clearance >= 0 {
			continue
		}
		intrusion := min(-clearance, c.HeightM)
		loss += c.Density * (intrusion / (2 * fresnel)) * (freqMHz / 100) * (xi / 100)
	}
	return loss
}
