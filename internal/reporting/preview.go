package reporting

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour/v2"
)

// DefaultPreviewStyle is the glamour style used when none is configured.
const DefaultPreviewStyle = "dark"

// Preview renders Markdown for display in a terminal of the given width.
func Preview(markdown []byte, width int, style string) (string, error) {
	if style == "" {
		style = DefaultPreviewStyle
	}
	opts := []glamour.TermRendererOption{
		glamour.WithStylePath(style),
		glamour.WithPreservedNewLines(),
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("preview: creating renderer: %w", err)
	}
	out, err := r.Render(string(markdown))
	if err != nil {
		return "", fmt.Errorf("preview: rendering: %w", err)
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
