package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/mediumroast/mrcli/api/schemas"
)

// PlainText extracts the readable text from an abstract that may contain HTML
// markup and collapses runs of whitespace.
func PlainText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.Join(strings.Fields(s), " ")
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// Unparseable markup falls back to the raw string.
				return strings.Join(strings.Fields(s), " ")
			}
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

// Truncate shortens s to at most limit runes, cutting at a word boundary when one
// exists and appending an ellipsis. A limit of zero or less disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndexFunc(cut, func(r rune) bool { return r == ' ' }); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// formatWhen renders an interaction's date and time for display.
func formatWhen(i schemas.Interaction) string {
	t, ok := i.When()
	if !ok {
		return strings.TrimSpace(i.Date + " " + i.Time)
	}
	if i.Time == "" {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSimilarity(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
