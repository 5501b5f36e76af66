package remote

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
)

// DirStore keeps reports in a plain local directory.
type DirStore struct {
	files  localFiles
	logger *zap.Logger
}

var _ schemas.FileStore = (*DirStore)(nil)

// NewDirStore returns a store rooted at root. The directory is created on first write.
func NewDirStore(root string, logger *zap.Logger) *DirStore {
	return &DirStore{files: localFiles{root: root}, logger: logger.Named("dir_store")}
}

func (s *DirStore) List(_ context.Context, dir string) ([]schemas.RemoteFile, error) {
	return s.files.list(dir)
}

func (s *DirStore) Put(_ context.Context, path string, content []byte, version string) error {
	if _, err := s.files.write(path, content, version); err != nil {
		return err
	}
	s.logger.Debug("Wrote report.", zap.String("path", path))
	return nil
}

func (s *DirStore) Delete(_ context.Context, path string, version string) error {
	full, err := s.files.checkDelete(path, version)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	s.logger.Debug("Deleted report.", zap.String("path", path))
	return nil
}

// Flush is a no-op; every write lands on disk immediately.
func (s *DirStore) Flush(context.Context, string) error { return nil }
