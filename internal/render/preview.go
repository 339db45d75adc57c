package render

import (
	"fmt"

	"github.com/charmbracelet/glamour"

	"manualgen/internal/assembler"
)

// Preview renders the markdown form of doc for a terminal. An empty style
// picks one from the terminal background.
func Preview(doc *assembler.Document, width int, style string) (string, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create preview renderer: %w", err)
	}
	out, err := r.Render(Markdown(doc, Options{HighlightUnresolved: true}))
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return out, nil
}
