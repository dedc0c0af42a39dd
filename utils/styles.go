package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	TextColor     = lipgloss.Color("#CCCCCC") // Light gray
	MutedColor    = lipgloss.Color("#888888") // Medium gray
	BorderColor   = lipgloss.Color("#666666") // Dark gray
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TextStyle     = lipgloss.NewStyle().Foreground(TextColor)
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Foreground(InfoColor).
			Bold(true).
			MarginTop(1)
)

const (
	barFill  = "█"
	barEmpty = "░"
)

// CreateProgressBar renders fraction (0..1) as a bar of width cells.
func CreateProgressBar(fraction float64, width int, color lipgloss.Color) string {
	if width < 4 {
		return fmt.Sprintf("%.0f%%", fraction*100)
	}

	filled := int(math.Round(fraction * float64(width)))
	filled = max(0, min(filled, width))

	bar := strings.Repeat(barFill, filled) + strings.Repeat(barEmpty, width-filled)
	if color != "" {
		bar = lipgloss.NewStyle().Foreground(color).Render(bar)
	}
	return bar
}

func GetSeverityStyle(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "critical":
		return CriticalStyle
	case "warning":
		return WarningStyle
	case "info":
		return InfoStyle
	default:
		return GoodStyle
	}
}

func GetSeverityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "warning":
		return "⚠️"
	case "info":
		return "ℹ️"
	default:
		return "✅"
	}
}

// ThroughputStatus grades application throughput in percent.
func ThroughputStatus(throughput float64) (string, lipgloss.Color) {
	switch {
	case throughput >= 99:
		return "Excellent", GoodColor
	case throughput >= 95:
		return "Good", GoodColor
	case throughput >= 90:
		return "Fair - Monitor", WarningColor
	default:
		return "Poor - Action needed", CriticalColor
	}
}

// PauseStatus grades the longest pause.
func PauseStatus(maxPause time.Duration) (string, lipgloss.Color) {
	switch {
	case maxPause > 500*time.Millisecond:
		return "Critical impact", CriticalColor
	case maxPause > 100*time.Millisecond:
		return "Noticeable delay", WarningColor
	case maxPause > 50*time.Millisecond:
		return "Minor impact", WarningColor
	default:
		return "Minimal impact", GoodColor
	}
}

func FormatKeyValue(key, value string, keyWidth int) string {
	keyStyled := InfoStyle.Width(keyWidth).Render(key + ":")
	valueStyled := TextStyle.Render(value)
	return lipgloss.JoinHorizontal(lipgloss.Left, keyStyled, " ", valueStyled)
}

// TruncateString truncates a string to fit within maxWidth
func TruncateString(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return strings.Repeat(".", maxWidth)
	}
	return s[:maxWidth-3] + "..."
}
