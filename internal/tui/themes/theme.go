package themes

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/coupn-app/coupn/internal/model"
)

// Theme defines the visual style for the dashboard.
type Theme struct {
	CategoryColors map[model.Category]lipgloss.Color
	Title          lipgloss.Style
	Subtitle       lipgloss.Style
	Normal         lipgloss.Style
	Bold           lipgloss.Style
	Code           lipgloss.Style
	Badge          lipgloss.Style
	Card           lipgloss.Style
	SelectedCard   lipgloss.Style
	StatusPending  lipgloss.Style
	StatusInfo     lipgloss.Style
	StatusError    lipgloss.Style
	StatusWarning  lipgloss.Style
	StatusSuccess  lipgloss.Style
	Secondary      lipgloss.Color
	Primary        lipgloss.Color
	Muted          lipgloss.Color
	Border         lipgloss.Color
	Foreground     lipgloss.Color
	Background     lipgloss.Color
	Info           lipgloss.Color
	Error          lipgloss.Color
	Warning        lipgloss.Color
	Success        lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	// Colors
	Primary:    lipgloss.Color("#7c3aed"),
	Secondary:  lipgloss.Color("#a78bfa"),
	Success:    lipgloss.Color("#10b981"),
	Warning:    lipgloss.Color("#f59e0b"),
	Error:      lipgloss.Color("#ef4444"),
	Info:       lipgloss.Color("#3b82f6"),
	Background: lipgloss.Color("#1a1a1a"),
	Foreground: lipgloss.Color("#fafafa"),
	Border:     lipgloss.Color("#404040"),
	Muted:      lipgloss.Color("#737373"),

	// Text styles
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Code: lipgloss.NewStyle().
		Background(lipgloss.Color("#262626")).
		Foreground(lipgloss.Color("#e5e5e5")).
		Padding(0, 1),
	Badge: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1a1a1a")).
		Padding(0, 1),

	// Component styles
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),
	SelectedCard: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7c3aed")).
		Padding(0, 1),

	// Status styles
	StatusSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")).
		Bold(true),
	StatusWarning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f59e0b")).
		Bold(true),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3b82f6")).
		Bold(true),
	StatusPending: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		Italic(true),

	CategoryColors: map[model.Category]lipgloss.Color{
		model.CategoryRetail:     lipgloss.Color("#f472b6"),
		model.CategoryElectronic: lipgloss.Color("#60a5fa"),
		model.CategoryGrocery:    lipgloss.Color("#4ade80"),
		model.CategorySports:     lipgloss.Color("#fb923c"),
		model.CategoryHealth:     lipgloss.Color("#2dd4bf"),
		model.CategoryCosmetics:  lipgloss.Color("#e879f9"),
		model.CategoryMusic:      lipgloss.Color("#a78bfa"),
		model.CategoryBooks:      lipgloss.Color("#fbbf24"),
		model.CategoryMisc:       lipgloss.Color("#a3a3a3"),
		model.CategoryDining:     lipgloss.Color("#f87171"),
		model.CategoryTravel:     lipgloss.Color("#38bdf8"),
		model.CategoryClothing:   lipgloss.Color("#c084fc"),
	},
}

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = Theme{
	// Colors
	Primary:    lipgloss.Color("#cba6f7"),
	Secondary:  lipgloss.Color("#f5c2e7"),
	Success:    lipgloss.Color("#a6e3a1"),
	Warning:    lipgloss.Color("#f9e2af"),
	Error:      lipgloss.Color("#f38ba8"),
	Info:       lipgloss.Color("#89dceb"),
	Background: lipgloss.Color("#1e1e2e"),
	Foreground: lipgloss.Color("#cdd6f4"),
	Border:     lipgloss.Color("#45475a"),
	Muted:      lipgloss.Color("#6c7086"),

	// Text styles
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#cdd6f4")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a6adc8")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#cdd6f4")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#cdd6f4")),
	Code: lipgloss.NewStyle().
		Background(lipgloss.Color("#313244")).
		Foreground(lipgloss.Color("#cdd6f4")).
		Padding(0, 1),
	Badge: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1e1e2e")).
		Padding(0, 1),

	// Component styles
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#45475a")).
		Padding(0, 1),
	SelectedCard: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#cba6f7")).
		Padding(0, 1),

	// Status styles
	StatusSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a6e3a1")).
		Bold(true),
	StatusWarning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f9e2af")).
		Bold(true),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f38ba8")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#89dceb")).
		Bold(true),
	StatusPending: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6c7086")).
		Italic(true),

	CategoryColors: map[model.Category]lipgloss.Color{
		model.CategoryRetail:     lipgloss.Color("#f5c2e7"),
		model.CategoryElectronic: lipgloss.Color("#89b4fa"),
		model.CategoryGrocery:    lipgloss.Color("#a6e3a1"),
		model.CategorySports:     lipgloss.Color("#fab387"),
		model.CategoryHealth:     lipgloss.Color("#94e2d5"),
		model.CategoryCosmetics:  lipgloss.Color("#f5c2e7"),
		model.CategoryMusic:      lipgloss.Color("#cba6f7"),
		model.CategoryBooks:      lipgloss.Color("#f9e2af"),
		model.CategoryMisc:       lipgloss.Color("#9399b2"),
		model.CategoryDining:     lipgloss.Color("#f38ba8"),
		model.CategoryTravel:     lipgloss.Color("#74c7ec"),
		model.CategoryClothing:   lipgloss.Color("#b4befe"),
	},
}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}

// CategoryIcons maps categories to emoji icons.
var CategoryIcons = map[model.Category]string{
	model.CategoryRetail:     "🛍️",
	model.CategoryElectronic: "💻",
	model.CategoryGrocery:    "🥬",
	model.CategorySports:     "🏀",
	model.CategoryHealth:     "💊",
	model.CategoryCosmetics:  "💄",
	model.CategoryMusic:      "🎵",
	model.CategoryBooks:      "📚",
	model.CategoryMisc:       "📦",
	model.CategoryDining:     "🍕",
	model.CategoryTravel:     "✈️",
	model.CategoryClothing:   "👕",
}

// GetCategoryIcon returns an icon for a category.
func GetCategoryIcon(category model.Category) string {
	if icon, ok := CategoryIcons[category]; ok {
		return icon
	}
	return "📦"
}

// CategoryBadge renders a category tag in its badge color.
func (t Theme) CategoryBadge(category model.Category) string {
	color, ok := t.CategoryColors[category]
	if !ok {
		color = t.Muted
	}
	return t.Badge.Background(color).Render(string(category))
}
