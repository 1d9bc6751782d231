package core

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/signalsfoundry/radioprop/itm"
	"github.com/signalsfoundry/radioprop/model"
	"github.com/signalsfoundry/radioprop/scenery"
)

// DefaultMaxDistanceM is the path length beyond which reception is not
// attempted.
const DefaultMaxDistanceM = 300e3

// ctxCheckInterval is how many samples are taken between context checks.
const ctxCheckInterval = 256

// Ground is the terrain under one terminal.
type Ground struct {
	ElevationM float64
	Material   string
	Found      bool
}

// Path is a terrain profile sampled along the great circle from the
// receiver to the transmitter. Elevations[0] and Materials[0] describe
// the ground under the receiver, the last entries the ground under the
// transmitter.
type Path struct {
	DistanceM  float64
	SpacingM   float64
	Elevations []float64
	Materials  []string

	Receiver    Ground
	Transmitter Ground
}

// Samples is the number of profile points.
func (p *Path) Samples() int { return len(p.Elevations) }

// Oriented returns the profile and its material tags in the order the
// propagation model expects. Receiver-first paths keep the sampled order;
// otherwise the arrays are reversed so the transmitter comes first. The
// returned slices are copies.
func (p *Path) Oriented(receiverFirst bool) (itm.Profile, []string) {
	z := slices.Clone(p.Elevations)
	m := slices.Clone(p.Materials)
	if !receiverFirst {
		slices.Reverse(z)
		slices.Reverse(m)
	}
	return itm.Profile{SpacingM: p.SpacingM, Elevations: z}, m
}

// Sampler walks great-circle paths against a scenery provider.
type Sampler struct {
	Scenery      scenery.Provider
	SpacingM     float64
	MaxDistanceM float64
}

// NewSampler returns a sampler over provider with the default 90 m
// spacing and 300 km range.
func NewSampler(provider scenery.Provider) *Sampler {
	return &Sampler{
		Scenery:      provider,
		SpacingM:     DefaultSamplingDistanceM,
		MaxDistanceM: DefaultMaxDistanceM,
	}
}

// GroundAt looks up the terrain under pos. Points the scenery does not
// cover read as sea level with no material.
func (s *Sampler) GroundAt(pos model.Position) Ground {
	if s.Scenery == nil {
		return Ground{Material: scenery.MaterialNone}
	}
	e, mat, ok := s.Scenery.ElevationAt(pos.Latitude, pos.Longitude)
	if !ok {
		return Ground{Material: scenery.MaterialNone}
	}
	if mat == "" {
		mat = scenery.MaterialNone
	}
	return Ground{ElevationM: e, Material: mat, Found: true}
}

// Sample builds the profile between rx and tx. The path is split into the
// whole number of intervals closest to the configured spacing, so the
// profile spans exactly the great-circle distance and a path shorter than
// one and a half spacings is a single interval. Co-located terminals get
// a single interval of minPathM. Paths longer than the maximum range
// return ErrOutOfRange.
func (s *Sampler) Sample(ctx context.Context, rx, tx model.Position) (*Path, error) {
	spacing := s.SpacingM
	if !(spacing > 0) {
		spacing = DefaultSamplingDistanceM
	}
	maxDist := s.MaxDistanceM
	if !(maxDist > 0) {
		maxDist = DefaultMaxDistanceM
	}

	d := rx.DistanceM(tx)
	if d > maxDist {
		return nil, fmt.Errorf("%w: %.1f km exceeds the %.0f km limit", ErrOutOfRange, d/1000, maxDist/1000)
	}

	n := max(1, int(math.Round(d/spacing)))
	p := &Path{
		DistanceM:  d,
		SpacingM:   d / float64(n),
		Elevations: make([]float64, n+1),
		Materials:  make([]string, n+1),
	}
	if d < minPathM {
		p.SpacingM = minPathM
	}

	p.Receiver = s.GroundAt(rx)
	p.Transmitter = s.GroundAt(tx)
	p.Elevations[0], p.Materials[0] = p.Receiver.ElevationM, p.Receiver.Material
	p.Elevations[n], p.Materials[n] = p.Transmitter.ElevationM, p.Transmitter.Material

	for i := 1; i < n; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		g := s.GroundAt(rx.Interpolate(tx, float64(i)/float64(n)))
		p.Elevations[i], p.Materials[i] = g.ElevationM, g.Material
	}
	return p, nil
}

// HeightAboveGround is the antenna height of a terminal at pos standing
// on ground, never negative.
func HeightAboveGround(pos model.Position, ground Ground, antennaM float64) float64 {
	return max(pos.AltitudeM-ground.ElevationM, 0) + antennaM
}
