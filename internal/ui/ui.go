package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Brand colors
var (
	Brand  = color.New(color.FgHiGreen, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

const Glyph = "\u25C9" // ◉

// Banner prints the conceptmap banner.
func Banner(subtitle string) {
	fmt.Printf("%s %s — %s\n\n", Glyph, Brand.Sprint("conceptmap"), subtitle)
}

// Table prints a simple aligned table.
func Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%-*s  ", widths[i], h)
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	Subtle.Println(headerLine)
	Subtle.Println(sepLine)

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += fmt.Sprintf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Println(line)
	}
}

// Bar renders frac (0..1, clamped) as a fixed-width bar.
func Bar(frac float64, width int) string {
	filled := min(max(int(frac*float64(width)+0.5), 0), width)
	return "[" + Brand.Sprint(strings.Repeat("█", filled)) +
		Subtle.Sprint(strings.Repeat("░", width-filled)) + "]"
}

// StatusIcon returns a status icon string.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// WarnIcon returns a warning icon.
func WarnIcon() string {
	return Warn.Sprint("⚠")
}

// Swatch renders a dot in a "#RRGGBB" colour. Malformed colours fall back
// to a plain dot.
func Swatch(hex string) string {
	r, g, b, ok := ParseHex(hex)
	if !ok {
		return "●"
	}
	return color.RGB(r, g, b).Sprint("●")
}

// ParseHex splits "#RRGGBB" into its channels.
func ParseHex(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
