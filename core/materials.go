package core

// Material is the mean clutter layer of a surface type: how tall the
// vegetation or buildings stand and how much of the wave they absorb.
type Material struct {
	HeightM float64 `json:"height_m"`
	Density float64 `json:"density"`
}

// MaterialTable maps scenery material names to their clutter layer.
type MaterialTable map[string]Material

// Lookup returns the clutter of name. Unknown materials, water and bare
// ground have no clutter.
func (t MaterialTable) Lookup(name string) Material {
	return t[name]
}

// With returns a copy of t with overrides applied.
func (t MaterialTable) With(overrides map[string]Material) MaterialTable {
	out := make(MaterialTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// DefaultMaterials returns the built-in clutter table.
func DefaultMaterials() MaterialTable {
	return MaterialTable{
		"Landmass": {15, 0.2},
		"SomeSort": {15, 0.2},
		"Island":   {15, 0.2},
		"Default":  {15, 0.2},

		"EvergreenBroadCover":  {20, 0.2},
		"EvergreenForest":      {20, 0.2},
		"DeciduousBroadCover":  {15, 0.3},
		"DeciduousForest":      {15, 0.3},
		"MixedForestCover":     {20, 0.25},
		"MixedForest":          {15, 0.25},
		"RainForest":           {25, 0.55},
		"EvergreenNeedleCover": {15, 0.2},
		"WoodedTundraCover":    {5, 0.15},
		"DeciduousNeedleCover": {5, 0.2},
		"ScrubCover":           {3, 0.15},

		"BuiltUpCover": {30, 0.7},
		"Urban":        {30, 0.7},
		"Construction": {30, 0.7},
		"Industrial":   {30, 0.7},
		"Port":         {30, 0.7},
		"Town":         {10, 0.5},
		"SubUrban":     {10, 0.5},

		"CropWoodCover": {10, 0.1},
		"CropWood":      {10, 0.1},
		"AgroForest":    {10, 0.1},
	}
}
