package ui

import (
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Theme defines UI color tokens used across widgets and text tags.
type Theme struct {
	// Widget colors
	Bg          tcell.Color
	Surface     tcell.Color
	Border      tcell.Color
	FocusBorder tcell.Color
	SelectionBg tcell.Color
	SelectionFg tcell.Color
	TextPrimary tcell.Color
	TextMuted   tcell.Color
	Accent      tcell.Color
	Success     tcell.Color
	Warning     tcell.Color
	Error       tcell.Color
	Header      tcell.Color

	// Table colors
	TableHeader   tcell.Color
	TableHeaderBg tcell.Color
	TableRow      tcell.Color
	TableRowMuted tcell.Color

	// Severity (widgets)
	SeverityCritical tcell.Color
	SeverityHigh     tcell.Color
	SeverityMedium   tcell.Color
	SeverityLow      tcell.Color

	// Text tag colors (for tview dynamic color markup)
	TagTextPrimary      string
	TagMuted            string
	TagAccent           string
	TagSuccess          string
	TagWarning          string
	TagError            string
	TagSeverityCritical string
	TagSeverityHigh     string
	TagSeverityMedium   string
	TagSeverityLow      string
}

// helpers
func hex(s string) tcell.Color { return tcell.GetColor(s) }

func themeDark() Theme {
	return Theme{
		Bg:          hex("#0e1116"),
		Surface:     hex("#12161e"),
		Border:      hex("#2b3240"),
		FocusBorder: hex("#4aa8ff"),
		SelectionBg: hex("#2b3240"),
		SelectionFg: hex("#cfd8e3"),
		TextPrimary: hex("#e6edf3"),
		TextMuted:   hex("#8a939f"),
		Accent:      hex("#2dd4bf"),
		Success:     hex("#22c55e"),
		Warning:     hex("#f59e0b"),
		Error:       hex("#ef4444"),
		Header:      hex("#eab308"),

		TableHeader:   hex("#eab308"),
		TableHeaderBg: hex("#1a2332"),
		TableRow:      hex("#e6edf3"),
		TableRowMuted: hex("#94a3b8"),

		SeverityCritical: hex("#ff5f5f"),
		SeverityHigh:     hex("#ffaf5f"),
		SeverityMedium:   hex("#ffd75f"),
		SeverityLow:      hex("#87ffaf"),

		TagTextPrimary:      "#e6edf3",
		TagMuted:            "#8a939f",
		TagAccent:           "#2dd4bf",
		TagSuccess:          "#22c55e",
		TagWarning:          "#f59e0b",
		TagError:            "#ef4444",
		TagSeverityCritical: "#ff5f5f",
		TagSeverityHigh:     "#ffaf5f",
		TagSeverityMedium:   "#ffd75f",
		TagSeverityLow:      "#87ffaf",
	}
}

func themeLight() Theme {
	return Theme{
		Bg:          hex("#f6f8fa"),
		Surface:     hex("#ffffff"),
		Border:      hex("#d0d7de"),
		FocusBorder: hex("#1f6feb"),
		SelectionBg: hex("#e2e8f0"),
		SelectionFg: hex("#111827"),
		TextPrimary: hex("#111827"),
		TextMuted:   hex("#6b7280"),
		Accent:      hex("#2563eb"),
		Success:     hex("#15803d"),
		Warning:     hex("#b45309"),
		Error:       hex("#b91c1c"),
		Header:      hex("#1f2937"),

		TableHeader:   hex("#1f2937"),
		TableHeaderBg: hex("#e5e7eb"),
		TableRow:      hex("#111827"),
		TableRowMuted: hex("#6b7280"),

		SeverityCritical: hex("#dc2626"),
		SeverityHigh:     hex("#f97316"),
		SeverityMedium:   hex("#ca8a04"),
		SeverityLow:      hex("#16a34a"),

		TagTextPrimary:      "#111827",
		TagMuted:            "#6b7280",
		TagAccent:           "#2563eb",
		TagSuccess:          "#15803d",
		TagWarning:          "#b45309",
		TagError:            "#b91c1c",
		TagSeverityCritical: "#dc2626",
		TagSeverityHigh:     "#f97316",
		TagSeverityMedium:   "#ca8a04",
		TagSeverityLow:      "#16a34a",
	}
}

func themeHighContrast() Theme {
	return Theme{
		Bg:          hex("#000000"),
		Surface:     hex("#000000"),
		Border:      hex("#ffffff"),
		FocusBorder: hex("#ffff00"),
		SelectionBg: hex("#ffffff"),
		SelectionFg: hex("#000000"),
		TextPrimary: hex("#ffffff"),
		TextMuted:   hex("#cccccc"),
		Accent:      hex("#00ffff"),
		Success:     hex("#00ff00"),
		Warning:     hex("#ffff00"),
		Error:       hex("#ff0000"),
		Header:      hex("#ffffff"),

		TableHeader:   hex("#ffffff"),
		TableHeaderBg: hex("#000000"),
		TableRow:      hex("#ffffff"),
		TableRowMuted: hex("#cccccc"),

		SeverityCritical: hex("#ff0000"),
		SeverityHigh:     hex("#ff8800"),
		SeverityMedium:   hex("#ffff00"),
		SeverityLow:      hex("#00ff00"),

		TagTextPrimary:      "#ffffff",
		TagMuted:            "#cccccc",
		TagAccent:           "#00ffff",
		TagSuccess:          "#00ff00",
		TagWarning:          "#ffff00",
		TagError:            "#ff0000",
		TagSeverityCritical: "#ff0000",
		TagSeverityHigh:     "#ff8800",
		TagSeverityMedium:   "#ffff00",
		TagSeverityLow:      "#00ff00",
	}
}

var themeOrder = []string{"dark", "light", "high-contrast"}

func themeByName(name string) Theme {
	switch name {
	case "light":
		return themeLight()
	case "high-contrast":
		return themeHighContrast()
	default:
		return themeDark()
	}
}

func detectTrueColor() bool {
	// Best-effort detection without initializing screen
	ct := strings.ToLower(os.Getenv("COLORTERM"))
	if strings.Contains(ct, "truecolor") || strings.Contains(ct, "24bit") {
		return true
	}
	term := strings.ToLower(os.Getenv("TERM"))
	if strings.Contains(term, "truecolor") || strings.Contains(term, "24bit") || strings.Contains(term, "256color") {
		return true
	}
	return false
}
