package config

import (
	"sort"

	"github.com/san-kum/clifford/internal/dynamo"
)

type Preset struct {
	Description string
	Params      dynamo.Params
}

var Presets = map[string]Preset{
	"canonical": {
		Description: "reference orbit used by the reproducibility tests",
		Params:      dynamo.CanonicalParams,
	},
	"butterfly": {
		Description: "two mirrored wings",
		Params:      dynamo.Params{A: -2.0, B: -2.0, C: -1.2, D: 2.0},
	},
	"ribbon": {
		Description: "thin folded ribbon",
		Params:      dynamo.Params{A: 1.641, B: 1.902, C: 0.316, D: 1.525},
	},
	"shell": {
		Description: "nested shell with dense core",
		Params:      dynamo.Params{A: 2.01, B: -2.53, C: 1.61, D: -0.33},
	},
	"veil": {
		Description: "diffuse veil, slow to saturate",
		Params:      dynamo.Params{A: -2.7, B: -0.09, C: -0.86, D: -2.2},
	},
}

func GetPreset(name string) (dynamo.Params, bool) {
	p, ok := Presets[name]
	if !ok {
		return dynamo.Params{}, false
	}
	return p.Params, true
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
