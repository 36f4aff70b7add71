package render

import (
	"image/color"
	"strings"
)

// Theme is a board palette.
type Theme struct {
	Light       color.RGBA
	Dark        color.RGBA
	Background  color.RGBA
	Coordinates color.NRGBA
}

var themes = map[string]Theme{
	"classic": {
		Light:       color.RGBA{233, 207, 163, 255},
		Dark:        color.RGBA{187, 136, 96, 255},
		Background:  color.RGBA{40, 33, 28, 255},
		Coordinates: color.NRGBA{R: 233, G: 207, B: 163, A: 255},
	},
	"green": {
		Light:       color.RGBA{238, 238, 210, 255},
		Dark:        color.RGBA{118, 150, 86, 255},
		Background:  color.RGBA{38, 46, 33, 255},
		Coordinates: color.NRGBA{R: 238, G: 238, B: 210, A: 255},
	},
	"blue": {
		Light:       color.RGBA{222, 227, 230, 255},
		Dark:        color.RGBA{140, 162, 173, 255},
		Background:  color.RGBA{28, 31, 46, 255},
		Coordinates: color.NRGBA{R: 204, G: 210, B: 236, A: 255},
	},
	"gray": {
		Light:       color.RGBA{200, 200, 200, 255},
		Dark:        color.RGBA{120, 120, 120, 255},
		Background:  color.RGBA{32, 32, 32, 255},
		Coordinates: color.NRGBA{R: 220, G: 220, B: 220, A: 255},
	},
}

var (
	lastMoveFill = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	selectedFill = color.NRGBA{R: 148, G: 207, B: 255, A: 150}
	targetDot    = color.NRGBA{R: 20, G: 20, B: 20, A: 90}
	checkFill    = color.NRGBA{R: 230, G: 60, B: 60, A: 170}
	boardShadow  = color.NRGBA{0, 0, 0, 60}
)

// ThemeByName returns the named palette, falling back to classic.
func ThemeByName(name string) Theme {
	if t, ok := themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return themes["classic"]
}

// HasTheme reports whether name has a palette.
func HasTheme(name string) bool {
	_, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
