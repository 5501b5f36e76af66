package reporting

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Office Open XML namespaces and relationship types.
const (
	nsW          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsTypes      = "http://schemas.openxmlformats.org/package/2006/content-types"
	relOfficeDoc = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relCoreProps = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// DOCXExt is the extension of generated Word documents.
const DOCXExt = ".docx"

// DOCXRenderer renders documents as Word (.docx) packages.
type DOCXRenderer struct {
	// Creator is recorded in the document properties.
	Creator string
	// Now stamps the creation time; tests pin it.
	Now func() time.Time
}

// NewDOCXRenderer returns a renderer stamping documents with the current time.
func NewDOCXRenderer() *DOCXRenderer {
	return &DOCXRenderer{Creator: "mrcli", Now: time.Now}
}

// Extension implements Renderer.
func (r *DOCXRenderer) Extension() string { return DOCXExt }

// Render implements Renderer.
func (r *DOCXRenderer) Render(doc Document) ([]byte, error) {
	w := newDocxWriter()
	if err := w.blocks(w.body, doc.Blocks); err != nil {
		return nil, err
	}
	w.body.CreateElement("w:sectPr")

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	parts := []struct {
		name string
		doc  *etree.Document
	}{
		{"[Content_Types].xml", contentTypesXML()},
		{"_rels/.rels", packageRelsXML()},
		{"docProps/core.xml", corePropsXML(doc.Title, r.Creator, now())},
		{"word/document.xml", w.doc},
		{"word/_rels/document.xml.rels", w.rels},
		{"word/styles.xml", stylesXML()},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("docx: creating %s: %w", p.name, err)
		}
		if _, err := p.doc.WriteTo(f); err != nil {
			return nil, fmt.Errorf("docx: writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx: finalizing package: %w", err)
	}
	return buf.Bytes(), nil
}

func newXMLDocument() *etree.Document {
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return d
}

// docxWriter holds the per-render state: the body under construction and the
// hyperlink relationships it references.
type docxWriter struct {
	doc     *etree.Document
	body    *etree.Element
	rels    *etree.Document
	relRoot *etree.Element
	nextRel int
}

func newDocxWriter() *docxWriter {
	d := newXMLDocument()
	root := d.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)

	rels := newXMLDocument()
	relRoot := rels.CreateElement("Relationships")
	relRoot.CreateAttr("xmlns", nsPkgRels)
	w := &docxWriter{doc: d, body: root.CreateElement("w:body"), rels: rels, relRoot: relRoot, nextRel: 1}
	w.relationship(relStyles, "styles.xml", false)
	return w
}

func (w *docxWriter) relationship(relType, target string, external bool) string {
	id := "rId" + strconv.Itoa(w.nextRel)
	w.nextRel++
	rel := w.relRoot.CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	if external {
		rel.CreateAttr("TargetMode", "External")
	}
	return id
}

func (w *docxWriter) blocks(parent *etree.Element, blocks []Block) error {
	for _, blk := range blocks {
		switch b := blk.(type) {
		case Heading:
			level := min(max(b.Level, 1), 6)
			p := paragraph(parent, "Heading"+strconv.Itoa(level))
			run(p, b.Text, false)
		case Paragraph:
			for _, line := range strings.Split(b.Text, "\n") {
				run(paragraph(parent, ""), line, false)
			}
		case Table:
			w.table(parent, b)
		case Link:
			w.hyperlink(paragraph(parent, ""), b.Text, b.Target)
		case HorizontalRule:
			p := paragraph(parent, "")
			border := p.SelectElement("w:pPr").CreateElement("w:pBdr").CreateElement("w:bottom")
			border.CreateAttr("w:val", "single")
			border.CreateAttr("w:sz", "6")
			border.CreateAttr("w:space", "1")
			border.CreateAttr("w:color", "auto")
		case PageBreak:
			br := paragraph(parent, "").CreateElement("w:r").CreateElement("w:br")
			br.CreateAttr("w:type", "page")
		case CollapsibleSection:
			// Word has no collapsible regions; the title becomes a bold lead-in.
			run(paragraph(parent, ""), b.Title, true)
			if err := w.blocks(parent, b.Body); err != nil {
				return err
			}
		case List:
			for _, item := range b.Items {
				run(paragraph(parent, "ListBullet"), "• "+item, false)
			}
		case CodeBlock:
			for _, line := range strings.Split(strings.TrimRight(b.Text, "\n"), "\n") {
				run(paragraph(parent, "Code"), line, false)
			}
		default:
			return fmt.Errorf("docx: unsupported block %T", blk)
		}
	}
	return nil
}

func paragraph(parent *etree.Element, style string) *etree.Element {
	p := parent.CreateElement("w:p")
	pPr := p.CreateElement("w:pPr")
	if style != "" {
		pPr.CreateElement("w:pStyle").CreateAttr("w:val", style)
	}
	return p
}

func run(p *etree.Element, text string, bold bool) *etree.Element {
	r := p.CreateElement("w:r")
	if bold {
		r.CreateElement("w:rPr").CreateElement("w:b")
	}
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
	return r
}

func (w *docxWriter) hyperlink(p *etree.Element, text, target string) {
	h := p.CreateElement("w:hyperlink")
	h.CreateAttr("r:id", w.relationship(relHyperlink, target, true))
	r := h.CreateElement("w:r")
	r.CreateElement("w:rPr").CreateElement("w:rStyle").CreateAttr("w:val", "Hyperlink")
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
}

func (w *docxWriter) table(parent *etree.Element, t Table) {
	tbl := parent.CreateElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	tblPr.CreateElement("w:tblStyle").CreateAttr("w:val", "TableGrid")
	width := tblPr.CreateElement("w:tblW")
	width.CreateAttr("w:w", "0")
	width.CreateAttr("w:type", "auto")

	grid := tbl.CreateElement("w:tblGrid")
	for range t.Header {
		grid.CreateElement("w:gridCol")
	}

	header := tbl.CreateElement("w:tr")
	header.CreateElement("w:trPr").CreateElement("w:tblHeader")
	for _, h := range t.Header {
		run(paragraph(header.CreateElement("w:tc"), ""), h, true)
	}
	for _, row := range t.Rows {
		tr := tbl.CreateElement("w:tr")
		for _, c := range row {
			p := paragraph(tr.CreateElement("w:tc"), "")
			if c.Link != "" && isExternal(c.Link) {
				w.hyperlink(p, c.Text, c.Link)
			} else {
				run(p, c.Text, false)
			}
		}
	}
	// Word merges adjacent tables unless a paragraph separates them.
	paragraph(parent, "")
}

// isExternal reports whether a link target is absolute. Relative Markdown links
// between generated reports mean nothing inside a standalone document.
func isExternal(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:")
}

func contentTypesXML() *etree.Document {
	d := newXMLDocument()
	types := d.CreateElement("Types")
	types.CreateAttr("xmlns", nsTypes)
	for _, d := range [][2]string{
		{"rels", "application/vnd.openxmlformats-package.relationships+xml"},
		{"xml", "application/xml"},
	} {
		def := types.CreateElement("Default")
		def.CreateAttr("Extension", d[0])
		def.CreateAttr("ContentType", d[1])
	}
	for _, o := range [][2]string{
		{"/word/document.xml", "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"},
		{"/word/styles.xml", "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"},
		{"/docProps/core.xml", "application/vnd.openxmlformats-package.core-properties+xml"},
	} {
		ov := types.CreateElement("Override")
		ov.CreateAttr("PartName", o[0])
		ov.CreateAttr("ContentType", o[1])
	}
	return d
}

func packageRelsXML() *etree.Document {
	d := newXMLDocument()
	root := d.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsPkgRels)
	for i, rel := range [][2]string{{relOfficeDoc, "word/document.xml"}, {relCoreProps, "docProps/core.xml"}} {
		r := root.CreateElement("Relationship")
		r.CreateAttr("Id", "rId"+strconv.Itoa(i+1))
		r.CreateAttr("Type", rel[0])
		r.CreateAttr("Target", rel[1])
	}
	return d
}

func corePropsXML(title, creator string, created time.Time) *etree.Document {
	d := newXMLDocument()
	root := d.CreateElement("cp:coreProperties")
	root.CreateAttr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	root.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	root.CreateAttr("xmlns:dcterms", "http://purl.org/dc/terms/")
	root.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	root.CreateElement("dc:title").SetText(title)
	root.CreateElement("dc:creator").SetText(creator)
	c := root.CreateElement("dcterms:created")
	c.CreateAttr("xsi:type", "dcterms:W3CDTF")
	c.SetText(created.UTC().Format(time.RFC3339))
	return d
}

func stylesXML() *etree.Document {
	d := newXMLDocument()
	root := d.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsW)

	style := func(kind, id, name string, size int, bold bool) *etree.Element {
		s := root.CreateElement("w:style")
		s.CreateAttr("w:type", kind)
		s.CreateAttr("w:styleId", id)
		s.CreateElement("w:name").CreateAttr("w:val", name)
		rPr := s.CreateElement("w:rPr")
		if bold {
			rPr.CreateElement("w:b")
		}
		if size > 0 {
			rPr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(size))
		}
		return s
	}

	normal := style("paragraph", "Normal", "Normal", 22, false)
	normal.CreateAttr("w:default", "1")
	for level, size := range []int{36, 30, 26, 24, 22, 22} {
		s := style("paragraph", "Heading"+strconv.Itoa(level+1), "heading "+strconv.Itoa(level+1), size, true)
		s.CreateElement("w:basedOn").CreateAttr("w:val", "Normal")
		pPr := s.CreateElement("w:pPr")
		pPr.CreateElement("w:keepNext")
		pPr.CreateElement("w:outlineLvl").CreateAttr("w:val", strconv.Itoa(level))
	}
	style("paragraph", "ListBullet", "List Bullet", 0, false).CreateElement("w:basedOn").CreateAttr("w:val", "Normal")
	code := style("paragraph", "Code", "Code", 18, false)
	fonts := code.SelectElement("w:rPr").CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", "Courier New")
	fonts.CreateAttr("w:hAnsi", "Courier New")
	link := style("character", "Hyperlink", "Hyperlink", 0, false)
	link.SelectElement("w:rPr").CreateElement("w:color").CreateAttr("w:val", "0563C1")
	link.SelectElement("w:rPr").CreateElement("w:u").CreateAttr("w:val", "single")
	grid := style("table", "TableGrid", "Table Grid", 0, false)
	borders := grid.CreateElement("w:tblPr").CreateElement("w:tblBorders")
	for _, edge := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		e := borders.CreateElement("w:" + edge)
		e.CreateAttr("w:val", "single")
		e.CreateAttr("w:sz", "4")
		e.CreateAttr("w:color", "auto")
	}
	return d
}
