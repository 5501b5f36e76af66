package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Renderer turns a Document into the bytes of a concrete file format.
type Renderer interface {
	// Render produces the complete file contents.
	Render(doc Document) ([]byte, error)
	// Extension is the file extension of the format, including the dot.
	Extension() string
}

// Supported output formats.
const (
	FormatMarkdown = "markdown"
	FormatDOCX     = "docx"
)

// NewRenderer returns the renderer for the named format.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case FormatMarkdown, "md", "":
		return MarkdownRenderer{}, nil
	case FormatDOCX:
		return NewDOCXRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// OpenOutput opens the destination of a rendered report. An empty path or
// "stdout" writes to standard output, which Close leaves open.
func OpenOutput(outputPath string) (io.WriteCloser, error) {
	if outputPath == "" || outputPath == "stdout" {
		return &nopWriteCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return f, nil
}

// Write renders doc with r and writes it to outputPath.
func Write(r Renderer, doc Document, outputPath string) (err error) {
	content, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to render %q: %w", doc.Title, err)
	}
	w, err := OpenOutput(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", outputPath, cerr)
		}
	}()
	if _, err = w.Write(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}
