// Package reporting turns entity collections into renderer-independent documents
// and renders those documents as Markdown or Word files.
package reporting

// Block is one structural element of a report. The set of block types is closed;
// renderers switch over them.
type Block interface {
	block()
}

// Heading is a section title. Level starts at 1.
type Heading struct {
	Level int
	Text  string
}

// Paragraph is a run of plain text.
type Paragraph struct {
	Text string
}

// Cell is a table cell, optionally linking somewhere.
type Cell struct {
	Text string
	Link string
}

// Table always carries a header row. A table without rows is still rendered.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// Link is a standalone hyperlink.
type Link struct {
	Text   string
	Target string
}

// HorizontalRule separates sections.
type HorizontalRule struct{}

// PageBreak starts a new page in paginated formats.
type PageBreak struct{}

// CollapsibleSection groups blocks that readers expand on demand.
type CollapsibleSection struct {
	Title string
	Body  []Block
}

// List is a bulleted list of plain text items.
type List struct {
	Items []string
}

// CodeBlock is preformatted text, tagged with a language for highlighting or
// rich rendering (GitHub renders "geojson" blocks as maps).
type CodeBlock struct {
	Language string
	Text     string
}

func (Heading) block()            {}
func (Paragraph) block()          {}
func (Table) block()              {}
func (Link) block()               {}
func (HorizontalRule) block()     {}
func (PageBreak) block()          {}
func (CollapsibleSection) block() {}
func (List) block()               {}
func (CodeBlock) block()          {}

// TextCell is a cell without a link.
func TextCell(text string) Cell { return Cell{Text: text} }

// LinkCell is a cell linking to target.
func LinkCell(text, target string) Cell { return Cell{Text: text, Link: target} }

// Document is an ordered list of blocks with a title used for metadata.
type Document struct {
	Title  string
	Blocks []Block
}

// builder accumulates blocks for an assembler.
type builder struct {
	blocks []Block
}

func (b *builder) add(blocks ...Block)          { b.blocks = append(b.blocks, blocks...) }
func (b *builder) heading(level int, t string)  { b.add(Heading{Level: level, Text: t}) }
func (b *builder) paragraph(t string)           { b.add(Paragraph{Text: t}) }
func (b *builder) table(h []string, r [][]Cell) { b.add(Table{Header: h, Rows: r}) }

func (b *builder) document(title string) Document {
	return Document{Title: title, Blocks: b.blocks}
}
