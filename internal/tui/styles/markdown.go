package styles

import (
	"strings"

	"github.com/charmbracelet/glamour/v2"
)

// GetMarkdownRenderer returns a glamour TermRenderer matching the current theme.
func GetMarkdownRenderer(width int) *glamour.TermRenderer {
	style := "dark"
	if !CurrentTheme().IsDark {
		style = "light"
	}
	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	return r
}

// RenderMarkdown renders md for the terminal, falling back to the raw text.
func RenderMarkdown(md string, width int) string {
	if md == "" {
		return ""
	}
	r := GetMarkdownRenderer(width)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
