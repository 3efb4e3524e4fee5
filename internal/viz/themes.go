package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme for the live view
type Theme struct {
	Name    string
	Ink     lipgloss.Color
	Title   lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Warning lipgloss.Color
}

// Available themes
var (
	ThemeInk = Theme{
		Name:    "ink",
		Ink:     lipgloss.Color("#f0f0f0"),
		Title:   lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#8888ff"),
		Text:    lipgloss.Color("#dddddd"),
		Muted:   lipgloss.Color("#777777"),
		Border:  lipgloss.Color("#444444"),
		Warning: lipgloss.Color("#ffaa00"),
	}

	ThemePhosphor = Theme{
		Name:    "phosphor",
		Ink:     lipgloss.Color("#33ff66"),
		Title:   lipgloss.Color("#88ff88"),
		Accent:  lipgloss.Color("#00cc44"),
		Text:    lipgloss.Color("#33ff66"),
		Muted:   lipgloss.Color("#116622"),
		Border:  lipgloss.Color("#005500"),
		Warning: lipgloss.Color("#ffff00"),
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Ink:     lipgloss.Color("#00a8cc"),
		Title:   lipgloss.Color("#e0f0ff"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Border:  lipgloss.Color("#0077be"),
		Warning: lipgloss.Color("#ffcc00"),
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Ink:     lipgloss.Color("#ff9ff3"),
		Title:   lipgloss.Color("#feca57"),
		Accent:  lipgloss.Color("#ff6b6b"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Border:  lipgloss.Color("#ff6b6b"),
		Warning: lipgloss.Color("#ffc048"),
	}

	// Default theme
	CurrentTheme = ThemeInk

	// All available themes
	Themes = []Theme{
		ThemeInk,
		ThemePhosphor,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to ink.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeInk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	for i, t := range Themes {
		if t.Name == CurrentTheme.Name {
			CurrentTheme = Themes[(i+1)%len(Themes)]
			return
		}
	}
	CurrentTheme = Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
