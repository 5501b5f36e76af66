package reporting_test

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediumroast/mrcli/internal/reporting"
)

func sampleDocument() reporting.Document {
	return reporting.Document{
		Title: "Sample",
		Blocks: []reporting.Block{
			reporting.Heading{Level: 1, Text: "Title"},
			reporting.Paragraph{Text: "Body text."},
			reporting.Table{
				Header: []string{"Name", "Value"},
				Rows: [][]reporting.Cell{
					{reporting.LinkCell("Site", "https://example.com"), reporting.TextCell("a|b")},
					{reporting.LinkCell("Local", "./Local.md"), reporting.TextCell("2")},
				},
			},
			reporting.Link{Text: "Docs", Target: "https://docs.example.com"},
			reporting.HorizontalRule{},
			reporting.PageBreak{},
			reporting.CollapsibleSection{Title: "More", Body: []reporting.Block{reporting.Paragraph{Text: "Hidden"}}},
			reporting.List{Items: []string{"one", "two"}},
			reporting.CodeBlock{Language: "json", Text: "{}\n"},
		},
	}
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := reporting.MarkdownRenderer{}.Render(sampleDocument())
	require.NoError(t, err)

	want := "# Title\n\n" +
		"Body text.\n\n" +
		"| Name | Value |\n" +
		"| --- | --- |\n" +
		"| [Site](https://example.com) | a\\|b |\n" +
		"| [Local](./Local.md) | 2 |\n\n" +
		"[Docs](https://docs.example.com)\n\n" +
		"---\n\n" +
		"<details>\n<summary>More</summary>\n\nHidden\n\n</details>\n\n" +
		"- one\n- two\n\n" +
		"```json\n{}\n```\n"
	assert.Equal(t, want, string(out))
}

func TestMarkdownRenderer_EmptyTable(t *testing.T) {
	out, err := reporting.MarkdownRenderer{}.Render(reporting.Document{Blocks: []reporting.Block{
		reporting.Table{Header: []string{"A", "B"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "| A | B |\n| --- | --- |\n", string(out))
}

func readZipPart(t *testing.T, content []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return data
		}
	}
	t.Fatalf("part %s not found in package", name)
	return nil
}

func TestDOCXRenderer(t *testing.T) {
	r := reporting.NewDOCXRenderer()
	r.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	out, err := r.Render(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, ".docx", r.Extension())

	for _, part := range []string{"[Content_Types].xml", "_rels/.rels", "docProps/core.xml", "word/styles.xml"} {
		assert.NotEmpty(t, readZipPart(t, out, part), part)
	}

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(readZipPart(t, out, "word/document.xml")))

	heading := doc.FindElement("//w:pStyle[@w:val='Heading1']")
	require.NotNil(t, heading)
	tables := doc.FindElements("//w:tbl")
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].SelectElements("w:tr"), 3, "header plus two rows")
	assert.Len(t, doc.FindElements("//w:hyperlink"), 2, "only absolute links become hyperlinks")
	assert.NotNil(t, doc.FindElement("//w:br[@w:type='page']"))

	rels := etree.NewDocument()
	require.NoError(t, rels.ReadFromBytes(readZipPart(t, out, "word/_rels/document.xml.rels")))
	external := rels.FindElements("//Relationship[@TargetMode='External']")
	require.Len(t, external, 2)
	assert.Equal(t, "https://example.com", external[0].SelectAttrValue("Target", ""))

	core := etree.NewDocument()
	require.NoError(t, core.ReadFromBytes(readZipPart(t, out, "docProps/core.xml")))
	assert.Equal(t, "Sample", core.FindElement("//dc:title").Text())
	assert.Equal(t, "2024-05-01T12:00:00Z", core.FindElement("//dcterms:created").Text())
}

func TestNewRenderer(t *testing.T) {
	for _, format := range []string{"markdown", "md", ""} {
		r, err := reporting.NewRenderer(format)
		require.NoError(t, err, format)
		assert.Equal(t, ".md", r.Extension())
	}

	r, err := reporting.NewRenderer("docx")
	require.NoError(t, err)
	assert.Equal(t, ".docx", r.Extension())

	_, err = reporting.NewRenderer("pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: pdf")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.md")
	require.NoError(t, reporting.Write(reporting.MarkdownRenderer{}, sampleDocument(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Title")
}

func TestPreview(t *testing.T) {
	out, err := reporting.Preview([]byte("# Hello\n\nWorld"), 60, "notty")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "World")
}
