// Package remote implements the stores generated reports are synchronised to: a GitHub
// repository through the contents API, a local git worktree, and a plain directory.
package remote

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/mediumroast/mrcli/api/schemas"
)

// ReadmeName is the index file each report directory carries.
const ReadmeName = "README.md"

// BlobVersion returns the git blob hash of content. Every store uses it as the version
// token, so tokens from GitHub and from a local checkout are interchangeable.
func BlobVersion(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

// localFiles is the version-checked file access shared by the local stores.
type localFiles struct {
	root string
}

func (l localFiles) resolve(p string) (string, error) {
	clean := path.Clean(filepath.ToSlash(p))
	if clean == "." {
		return l.root, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("path %q escapes the store root", p)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l localFiles) list(dir string) ([]schemas.RemoteFile, error) {
	full, err := l.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []schemas.RemoteFile
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(full, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		files = append(files, schemas.RemoteFile{
			Name:    e.Name(),
			Path:    path.Join(filepath.ToSlash(dir), e.Name()),
			Version: BlobVersion(content),
		})
	}
	return files, nil
}

// check compares the version token against the file currently at full.
func (l localFiles) check(p, full, version string) (exists bool, err error) {
	current, err := os.ReadFile(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if version != "" {
			return false, fmt.Errorf("%s was removed since version %s: %w", p, version, schemas.ErrRemoteConflict)
		}
		return false, nil
	case err != nil:
		return false, fmt.Errorf("reading %s: %w", p, err)
	}
	if got := BlobVersion(current); got != version {
		return true, fmt.Errorf("%s is at version %s, not %q: %w", p, got, version, schemas.ErrRemoteConflict)
	}
	return true, nil
}

func (l localFiles) write(p string, content []byte, version string) (string, error) {
	full, err := l.resolve(p)
	if err != nil {
		return "", err
	}
	if _, err := l.check(p, full, version); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", p, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	return full, nil
}

// checkDelete validates a delete and returns the absolute path of the file.
func (l localFiles) checkDelete(p, version string) (string, error) {
	full, err := l.resolve(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("deleting %s: %w", p, schemas.ErrNotFound)
	}
	if _, err := l.check(p, full, version); err != nil {
		return "", err
	}
	return full, nil
}
