package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
)

// FileSource reads the collections from a local checkout of a Mediumroast repository.
type FileSource struct {
	root   string
	logger *zap.Logger
}

var _ schemas.EntitySource = (*FileSource)(nil)

func NewFileSource(root string, logger *zap.Logger) *FileSource {
	return &FileSource{root: root, logger: logger.Named("file_source")}
}

func (s *FileSource) read(rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("Collection file missing, treating as empty.", zap.String("path", rel))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

func (s *FileSource) Companies(context.Context) ([]schemas.Company, error) {
	data, err := s.read(CompaniesPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Company](data, "companies")
}

func (s *FileSource) Interactions(context.Context) ([]schemas.Interaction, error) {
	data, err := s.read(InteractionsPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Interaction](data, "interactions")
}

func (s *FileSource) Studies(context.Context) ([]schemas.Study, error) {
	data, err := s.read(StudiesPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Study](data, "studies")
}
