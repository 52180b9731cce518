package config

// Presets are ready-made basis sizes for common fitting workloads.
var Presets = map[string]*Config{
	"light": {
		Species:   []int{1},
		MaxOrder:  2,
		MaxDegree: []float64{6},
		WeightL:   1.5,
		Constant:  1.0,
		Radial: RadialConfig{
			NMax: 4, LMax: 2, RCut: 5.0,
			Transform: TransformConfig{Kind: "polynomial", R0: 2.5, P: 2},
		},
	},
	"medium": {
		Species:   []int{1},
		MaxOrder:  3,
		MaxDegree: []float64{10, 8, 6},
		WeightL:   1.5,
		Constant:  1.0,
		Radial: RadialConfig{
			NMax: 8, LMax: 3, RCut: 5.5,
			Transform: TransformConfig{Kind: "polynomial", R0: 2.5, P: 2},
		},
	},
	"heavy": {
		Species:   []int{1},
		MaxOrder:  4,
		MaxDegree: []float64{14, 12, 10, 8},
		WeightL:   1.5,
		Constant:  1.0,
		Radial: RadialConfig{
			NMax: 12, LMax: 4, RCut: 6.0,
			Transform: TransformConfig{Kind: "agnesi", R0: 2.5, P: 3},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil when unknown. The
// species list is the caller's to override.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *p
	cp.Species = append([]int(nil), p.Species...)
	cp.MaxDegree = append([]float64(nil), p.MaxDegree...)
	cp.Radial.Transform.Pairs = append([]PairTransform(nil), p.Radial.Transform.Pairs...)
	return &cp
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	return names
}
