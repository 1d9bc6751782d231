// Package scenery answers terrain elevation and surface material queries
// for the radio layer. Lookups are synchronous and in memory; tiles are
// decoded once and then served from a cache.
package scenery

// MaterialNone is reported where the scenery has no material tag.
const MaterialNone = "None"

// Provider is a synchronous point query against loaded scenery. ok is
// false where no scenery covers the point.
type Provider interface {
	ElevationAt(lat, lon float64) (elevationM float64, material string, ok bool)
}

// FlatProvider reports the same elevation and material everywhere.
type FlatProvider struct {
	ElevationM float64
	Material   string
}

func (f FlatProvider) ElevationAt(lat, lon float64) (float64, string, bool) {
	m := f.Material
	if m == "" {
		m = MaterialNone
	}
	return f.ElevationM, m, true
}

// FuncProvider adapts a function to Provider.
type FuncProvider func(lat, lon float64) (float64, string, bool)

func (f FuncProvider) ElevationAt(lat, lon float64) (float64, string, bool) {
	return f(lat, lon)
}

// Layered queries each provider in turn and returns the first hit.
type Layered []Provider

func (l Layered) ElevationAt(lat, lon float64) (float64, string, bool) {
	for _, p := range l {
		if e, m, ok := p.ElevationAt(lat, lon); ok {
			return e, m, true
		}
	}
	return 0, MaterialNone, false
}
