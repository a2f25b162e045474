// Package timeline draws highlight ranges as a one-line terminal strip.
package timeline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/platinummonkey/mapdone/internal/highlight"
)

// DefaultWidth is the strip width used by the CLI
const DefaultWidth = 60

// Glyphs per cell content
const (
	glyphEmpty    = "·"
	glyphObject   = "█"
	glyphBreak    = "░"
	glyphBookmark = "│"
)

// Timeline styles using lipgloss
var (
	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#636E72"))

	objectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	bookmarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7BED9F")).
			Bold(true)
)

// Cells rasterizes ranges into width cells. Ranges are painted in render
// order so bookmarks end up on top of objects and objects on top of breaks.
// An empty string marks a cell no range touches.
func Cells(ranges highlight.Ranges, width int) []highlight.Kind {
	if width <= 0 {
		return nil
	}
	cells := make([]highlight.Kind, width)
	w := float64(width)
	for _, r := range highlight.ForRender(ranges) {
		if r.End <= r.Start {
			continue
		}
		kind := r.Kind
		if r.IsObject() {
			kind = highlight.KindObject
		}
		for i := range cells {
			lo, hi := float64(i)/w, float64(i+1)/w
			if r.Start < hi && r.End > lo {
				cells[i] = kind
			}
		}
	}
	return cells
}

// Render draws the strip. With styled unset the output is plain glyphs.
func Render(ranges highlight.Ranges, width int, styled bool) string {
	var sb strings.Builder
	for _, k := range Cells(ranges, width) {
		glyph, style := glyphFor(k)
		if styled {
			glyph = style.Render(glyph)
		}
		sb.WriteString(glyph)
	}
	return sb.String()
}

func glyphFor(k highlight.Kind) (string, lipgloss.Style) {
	switch k {
	case highlight.KindObject:
		return glyphObject, objectStyle
	case highlight.KindBreak:
		return glyphBreak, breakStyle
	case highlight.KindBookmark:
		return glyphBookmark, bookmarkStyle
	default:
		return glyphEmpty, emptyStyle
	}
}

// Percent formats a progress fraction, e.g. "41.7%".
func Percent(p float64, styled bool) string {
	s := fmt.Sprintf("%5.1f%%", p*100)
	if styled && p >= 1 {
		return doneStyle.Render(s)
	}
	return s
}
