package scenery

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidGrid = errors.New("scenery: invalid grid")

// Grid is a regular latitude/longitude elevation grid. Row 0 is the
// southern edge, column 0 the western edge. Materials are tagged per cell
// through a small palette.
type Grid struct {
	South   float64   `msgpack:"s"`
	West    float64   `msgpack:"w"`
	StepDeg float64   `msgpack:"d"`
	Rows    int       `msgpack:"r"`
	Cols    int       `msgpack:"c"`
	Heights []float32 `msgpack:"h"`

	Palette   []string `msgpack:"p"`
	Materials []uint8  `msgpack:"m"` // palette index per sample, optional
}

// Validate checks that the grid dimensions agree with its data.
func (g *Grid) Validate() error {
	if g.Rows < 2 || g.Cols < 2 {
		return fmt.Errorf("%w: %dx%d samples", ErrInvalidGrid, g.Rows, g.Cols)
	}
	if !(g.StepDeg > 0) {
		return fmt.Errorf("%w: step %g", ErrInvalidGrid, g.StepDeg)
	}
	if len(g.Heights) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %d heights for %dx%d samples", ErrInvalidGrid, len(g.Heights), g.Rows, g.Cols)
	}
	if len(g.Materials) != 0 && len(g.Materials) != len(g.Heights) {
		return fmt.Errorf("%w: %d materials for %d samples", ErrInvalidGrid, len(g.Materials), len(g.Heights))
	}
	for i, m := range g.Materials {
		if int(m) >= len(g.Palette) {
			return fmt.Errorf("%w: material %d at sample %d not in palette", ErrInvalidGrid, m, i)
		}
	}
	return nil
}

// North and East are the far edges covered by samples.
func (g *Grid) North() float64 { return g.South + float64(g.Rows-1)*g.StepDeg }
func (g *Grid) East() float64  { return g.West + float64(g.Cols-1)*g.StepDeg }

// Contains reports whether the point lies inside the sampled area.
func (g *Grid) Contains(lat, lon float64) bool {
	return lat >= g.South && lat <= g.North() && lon >= g.West && lon <= g.East()
}

// ElevationAt interpolates bilinearly between the four surrounding
// samples. The material is the one of the nearest sample.
func (g *Grid) ElevationAt(lat, lon float64) (float64, string, bool) {
	if !g.Contains(lat, lon) {
		return 0, MaterialNone, false
	}

	y := (lat - g.South) / g.StepDeg
	x := (lon - g.West) / g.StepDeg
	r0 := min(int(y), g.Rows-2)
	c0 := min(int(x), g.Cols-2)
	fy, fx := y-float64(r0), x-float64(c0)

	h := func(r, c int) float64 { return float64(g.Heights[r*g.Cols+c]) }
	south := h(r0, c0)*(1-fx) + h(r0, c0+1)*fx
	north := h(r0+1, c0)*(1-fx) + h(r0+1, c0+1)*fx
	elev := south*(1-fy) + north*fy

	return elev, g.materialAt(int(math.Round(y)), int(math.Round(x))), true
}

func (g *Grid) materialAt(r, c int) string {
	if len(g.Materials) == 0 {
		return MaterialNone
	}
	return g.Palette[g.Materials[r*g.Cols+c]]
}

// maxPaletteSize is the number of materials a uint8 index can address,
// MaterialNone included.
const maxPaletteSize = math.MaxUint8 + 1

// Set stores a sample; used when building tiles. It fails once a new
// material would overflow the palette.
func (g *Grid) Set(row, col int, heightM float64, material string) error {
	i := row*g.Cols + col
	g.Heights[i] = float32(heightM)
	if material == "" {
		return nil
	}
	if len(g.Materials) == 0 {
		g.Materials = make([]uint8, len(g.Heights))
		g.Palette = append(g.Palette, MaterialNone)
	}
	for p, name := range g.Palette {
		if name == material {
			g.Materials[i] = uint8(p)
			return nil
		}
	}
	if len(g.Palette) >= maxPaletteSize {
		return fmt.Errorf("%w: palette full at %d materials, cannot add %q", ErrInvalidGrid, len(g.Palette), material)
	}
	g.Palette = append(g.Palette, material)
	g.Materials[i] = uint8(len(g.Palette) - 1)
	return nil
}

// NewGrid allocates an all-zero grid.
func NewGrid(south, west, stepDeg float64, rows, cols int) *Grid {
	return &Grid{
		South:   south,
		West:    west,
		StepDeg: stepDeg,
		Rows:    rows,
		Cols:    cols,
		Heights: make([]float32, rows*cols),
	}
}
