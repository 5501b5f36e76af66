package reporting

import (
	"fmt"
	"strings"
)

// MarkdownRenderer renders documents as GitHub-flavored Markdown.
type MarkdownRenderer struct{}

// Extension implements Renderer.
func (MarkdownRenderer) Extension() string { return MarkdownExt }

// Render implements Renderer.
func (MarkdownRenderer) Render(doc Document) ([]byte, error) {
	var sb strings.Builder
	if err := writeMarkdown(&sb, doc.Blocks); err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

func writeMarkdown(sb *strings.Builder, blocks []Block) error {
	for _, blk := range blocks {
		switch b := blk.(type) {
		case Heading:
			level := min(max(b.Level, 1), 6)
			fmt.Fprintf(sb, "%s %s\n\n", strings.Repeat("#", level), b.Text)
		case Paragraph:
			fmt.Fprintf(sb, "%s\n\n", b.Text)
		case Table:
			writeMarkdownTable(sb, b)
		case Link:
			fmt.Fprintf(sb, "[%s](%s)\n\n", b.Text, b.Target)
		case HorizontalRule:
			sb.WriteString("---\n\n")
		case PageBreak:
			// Markdown has no pages.
		case CollapsibleSection:
			fmt.Fprintf(sb, "<details>\n<summary>%s</summary>\n\n", b.Title)
			if err := writeMarkdown(sb, b.Body); err != nil {
				return err
			}
			sb.WriteString("</details>\n\n")
		case List:
			for _, item := range b.Items {
				fmt.Fprintf(sb, "- %s\n", item)
			}
			sb.WriteString("\n")
		case CodeBlock:
			fmt.Fprintf(sb, "```%s\n%s\n```\n\n", b.Language, strings.TrimRight(b.Text, "\n"))
		default:
			return fmt.Errorf("markdown: unsupported block %T", blk)
		}
	}
	return nil
}

func writeMarkdownTable(sb *strings.Builder, t Table) {
	header := make([]string, len(t.Header))
	sep := make([]string, len(t.Header))
	for i, h := range t.Header {
		header[i] = escapeCell(h)
		sep[i] = "---"
	}
	fmt.Fprintf(sb, "| %s |\n", strings.Join(header, " | "))
	fmt.Fprintf(sb, "| %s |\n", strings.Join(sep, " | "))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = markdownCell(c)
		}
		fmt.Fprintf(sb, "| %s |\n", strings.Join(cells, " | "))
	}
	sb.WriteString("\n")
}

func markdownCell(c Cell) string {
	if c.Link != "" {
		return fmt.Sprintf("[%s](%s)", escapeCell(c.Text), c.Link)
	}
	return escapeCell(c.Text)
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
