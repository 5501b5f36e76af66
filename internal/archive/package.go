package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
)

// InteractionsDir is the package folder artifacts are stored in.
const InteractionsDir = "interactions"

// NamedFile is a file to place in a package.
type NamedFile struct {
	Name    string
	Content []byte
}

// Fetcher downloads the artifact behind an interaction URL.
type Fetcher interface {
	Fetch(ctx context.Context, raw string) ([]byte, error)
}

// Package writes a ZIP archive holding doc at the root and every artifact under
// interactions/. Artifacts sharing a name are numbered.
func Package(w io.Writer, doc NamedFile, artifacts []NamedFile, modified time.Time) error {
	zw := zip.NewWriter(w)
	if err := addFile(zw, doc.Name, doc.Content, modified); err != nil {
		return err
	}
	seen := make(map[string]int, len(artifacts))
	for _, a := range artifacts {
		name := uniqueName(a.Name, seen)
		if err := addFile(zw, path.Join(InteractionsDir, name), a.Content, modified); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing package: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, name string, content []byte, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("adding %s to package: %w", name, err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("writing %s to package: %w", name, err)
	}
	return nil
}

func uniqueName(name string, seen map[string]int) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + strconv.Itoa(n) + ext
}

// BuildPackage downloads the artifact of every interaction and packages them with doc.
// Interactions without a URL are skipped. Failed downloads are logged and left out;
// their interaction names are returned so the caller can report a partial package.
func BuildPackage(ctx context.Context, w io.Writer, doc NamedFile, interactions []schemas.Interaction, f Fetcher, logger *zap.Logger) ([]string, error) {
	logger = logger.Named("package")
	var (
		artifacts []NamedFile
		missing   []string
	)
	for _, in := range interactions {
		if in.URL == "" {
			continue
		}
		data, err := f.Fetch(ctx, in.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Skipping artifact.", zap.String("interaction", in.Name), zap.Error(err))
			missing = append(missing, in.Name)
			continue
		}
		name := ArtifactName(in.URL)
		if name == "" || name == "." || name == "/" {
			name = in.Name
		}
		artifacts = append(artifacts, NamedFile{Name: name, Content: data})
	}

	if err := Package(w, doc, artifacts, time.Now()); err != nil {
		return nil, err
	}
	logger.Info("Packaged report.",
		zap.String("document", doc.Name),
		zap.Int("artifacts", len(artifacts)),
		zap.Int("missing", len(missing)))
	return missing, nil
}
