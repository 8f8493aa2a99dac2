package theme

import "github.com/charmbracelet/lipgloss"

// Jane returns the default dark theme, a cyan-on-charcoal scheme.
func Jane() *Theme {
	return &Theme{
		Name:   "JANE",
		IsDark: true,

		Accent: lipgloss.Color("#4dd9ff"),
		Blue:   lipgloss.Color("#7aa2f7"),
		Green:  lipgloss.Color("#9ece6a"),
		Yellow: lipgloss.Color("#e0af68"),
		Red:    lipgloss.Color("#f7768e"),
		Peach:  lipgloss.Color("#ff9e64"),
		Pink:   lipgloss.Color("#bb9af7"),

		Text:    lipgloss.Color("#e6ebf7"),
		Subtext: lipgloss.Color("#bfc7d1"),

		Surface: lipgloss.Color("#242633"),
		Base:    lipgloss.Color("#12141a"),
		Mantle:  lipgloss.Color("#1f2129"),

		Overlay: lipgloss.Color("#565f89"),
	}
}

// Mocha returns the Catppuccin Mocha theme (dark).
func Mocha() *Theme {
	return &Theme{
		Name:   "Catppuccin Mocha",
		IsDark: true,

		Accent: lipgloss.Color("#cba6f7"),
		Blue:   lipgloss.Color("#89b4fa"),
		Green:  lipgloss.Color("#a6e3a1"),
		Yellow: lipgloss.Color("#f9e2af"),
		Red:    lipgloss.Color("#f38ba8"),
		Peach:  lipgloss.Color("#fab387"),
		Pink:   lipgloss.Color("#f5c2e7"),

		Text:    lipgloss.Color("#cdd6f4"),
		Subtext: lipgloss.Color("#a6adc8"),

		Surface: lipgloss.Color("#313244"),
		Base:    lipgloss.Color("#1e1e2e"),
		Mantle:  lipgloss.Color("#181825"),

		Overlay: lipgloss.Color("#6c7086"),
	}
}

// Latte returns the Catppuccin Latte theme (light).
func Latte() *Theme {
	return &Theme{
		Name:   "Catppuccin Latte",
		IsDark: false,

		Accent: lipgloss.Color("#8839ef"),
		Blue:   lipgloss.Color("#1e66f5"),
		Green:  lipgloss.Color("#40a02b"),
		Yellow: lipgloss.Color("#df8e1d"),
		Red:    lipgloss.Color("#d20f39"),
		Peach:  lipgloss.Color("#fe640b"),
		Pink:   lipgloss.Color("#ea76cb"),

		Text:    lipgloss.Color("#4c4f69"),
		Subtext: lipgloss.Color("#6c6f85"),

		Surface: lipgloss.Color("#ccd0da"),
		Base:    lipgloss.Color("#eff1f5"),
		Mantle:  lipgloss.Color("#e6e9ef"),

		Overlay: lipgloss.Color("#9ca0b0"),
	}
}
