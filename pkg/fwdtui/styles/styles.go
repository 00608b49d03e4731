package styles

import "github.com/charmbracelet/lipgloss"

// color returns a lipgloss.Color, choosing light or dark variant based on the
// current theme set by SetDarkTheme.
func color(light, dark string) lipgloss.Color {
	if isDark {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

// isDark tracks the current theme. Default is dark.
var isDark = true

// SetDarkTheme switches the color palette. Call this before the TUI starts.
// Passing false selects the light palette; true selects the dark palette.
func SetDarkTheme(dark bool) {
	isDark = dark
	applyTheme()
}

// IsDarkTheme returns the current theme setting.
func IsDarkTheme() bool {
	return isDark
}

func applyTheme() {
	// --- palette ---
	colorYellow := color("136", "226")
	colorBlue := color("27", "39")
	colorGreen := color("28", "42")
	colorRed := color("160", "196")
	colorOrange := color("166", "208")
	colorGray := color("243", "240")
	colorWhite := color("16", "255")
	colorFocused := color("62", "62")
	colorCyan := color("30", "51")
	colorMagenta := color("127", "213")

	// --- header ---
	HeaderTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	HeaderVersionStyle = lipgloss.NewStyle().Foreground(colorWhite)
	HeaderListenStyle = lipgloss.NewStyle().Foreground(colorCyan)
	HeaderHintStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- bridge state ---
	StatusUpStyle = lipgloss.NewStyle().Foreground(colorGreen)
	StatusWaitingStyle = lipgloss.NewStyle().Foreground(colorYellow)
	StatusDownStyle = lipgloss.NewStyle().Foreground(colorRed)

	// --- bus lines ---
	LinePanelStyle = lipgloss.NewStyle().Foreground(colorWhite)
	LineModuleStyle = lipgloss.NewStyle().Foreground(colorMagenta)
	LineConnectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	LineOverflowStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOrange)
	LineElapsedStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- log levels ---
	LogPanicStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	LogFatalStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	LogErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
	LogWarnStyle = lipgloss.NewStyle().Foreground(colorYellow)
	LogInfoStyle = lipgloss.NewStyle().Foreground(colorGreen)
	LogDebugStyle = lipgloss.NewStyle().Foreground(colorBlue)
	LogTraceStyle = lipgloss.NewStyle().Foreground(colorGray)
	LogTimestampStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- table ---
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	TableValueStyle = lipgloss.NewStyle().Foreground(colorWhite)
	TableAlertStyle = lipgloss.NewStyle().Foreground(colorRed)

	// --- status bar ---
	StatusBarStyle = lipgloss.NewStyle().Foreground(colorWhite)
	StatusBarErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
	StatusBarHelpStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- help modal ---
	HelpModalStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFocused).Padding(1, 2)
	HelpTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow).MarginBottom(1)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(colorBlue).Width(12)
	HelpDescStyle = lipgloss.NewStyle().Foreground(colorWhite)

	// --- section ---
	SectionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	FocusAccentStyle = lipgloss.NewStyle().Foreground(colorCyan)

	// --- sparkline ---
	ActivityInputStyle = lipgloss.NewStyle().Foreground(colorGreen)
	ActivityLinesStyle = lipgloss.NewStyle().Foreground(colorBlue)
}

// All style variables, initialized with the dark theme.
var (
	// Header styles
	HeaderTitleStyle   lipgloss.Style
	HeaderVersionStyle lipgloss.Style
	HeaderListenStyle  lipgloss.Style
	HeaderHintStyle    lipgloss.Style

	// Bus and session state
	StatusUpStyle      lipgloss.Style
	StatusWaitingStyle lipgloss.Style
	StatusDownStyle    lipgloss.Style

	// Bus line styles by kind
	LinePanelStyle      lipgloss.Style
	LineModuleStyle     lipgloss.Style
	LineConnectionStyle lipgloss.Style
	LineOverflowStyle   lipgloss.Style
	LineElapsedStyle    lipgloss.Style

	// Log level styles
	LogPanicStyle     lipgloss.Style
	LogFatalStyle     lipgloss.Style
	LogErrorStyle     lipgloss.Style
	LogWarnStyle      lipgloss.Style
	LogInfoStyle      lipgloss.Style
	LogDebugStyle     lipgloss.Style
	LogTraceStyle     lipgloss.Style
	LogTimestampStyle lipgloss.Style

	// Table styles
	TableHeaderStyle lipgloss.Style
	TableValueStyle  lipgloss.Style
	TableAlertStyle  lipgloss.Style

	// Status bar styles
	StatusBarStyle      lipgloss.Style
	StatusBarErrorStyle lipgloss.Style
	StatusBarHelpStyle  lipgloss.Style

	// Help modal styles
	HelpModalStyle lipgloss.Style
	HelpTitleStyle lipgloss.Style
	HelpKeyStyle   lipgloss.Style
	HelpDescStyle  lipgloss.Style

	// Section styles
	SectionTitleStyle lipgloss.Style
	FocusAccentStyle  lipgloss.Style

	// Activity strip styles
	ActivityInputStyle lipgloss.Style
	ActivityLinesStyle lipgloss.Style
)

func init() {
	applyTheme()
}

// ForLineKind picks the style for a bus line kind. Unknown kinds render
// as panel lines.
func ForLineKind(kind string) lipgloss.Style {
	switch kind {
	case "module":
		return LineModuleStyle
	case "connection":
		return LineConnectionStyle
	case "overflow":
		return LineOverflowStyle
	default:
		return LinePanelStyle
	}
}
