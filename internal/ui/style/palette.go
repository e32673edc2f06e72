package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")

	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Text:      Base2,
		TextMuted: Base01,
	}
}

// ConsoleStyles styles the operator console.
type ConsoleStyles struct {
	Title       lipgloss.Style
	Prompt      lipgloss.Style
	Output      lipgloss.Style
	Muted       lipgloss.Style
	Error       lipgloss.Style
	PnLPositive lipgloss.Style
	PnLNegative lipgloss.Style
}

func NewConsoleStyles(palette Palette) ConsoleStyles {
	return ConsoleStyles{
		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			MarginBottom(1),
		Prompt: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true),
		Output: lipgloss.NewStyle().
			Foreground(palette.Text),
		Muted: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
		Error: lipgloss.NewStyle().
			Foreground(palette.Error),
		PnLPositive: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),
		PnLNegative: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),
	}
}
