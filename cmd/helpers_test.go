// File: cmd/helpers_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/archive"
	"github.com/mediumroast/mrcli/internal/config"
	"github.com/mediumroast/mrcli/internal/observability"
	"github.com/mediumroast/mrcli/internal/remote"
	"github.com/mediumroast/mrcli/internal/source"
)

const (
	companiesJSON = `[
  {"id": 1, "name": "Acme, Inc.", "role": "Owner", "region": "AMER", "industry": "Software",
   "linked_interactions": {"Acme Q1 Call": {}}},
  {"id": 2, "name": "Beta Co", "role": "Competitor", "region": "EMEA", "linked_interactions": {}}
]`
	interactionsJSON = `[
  {"id": 10, "name": "Acme Q1 Call", "guid": "guid-1", "interaction_type": "Call", "date": "20240301",
   "abstract": "Pricing call.", "url": "s3://acme-bucket/q1-call.pdf", "linked_companies": {"Acme, Inc.": {}}}
]`
	studiesJSON = `[
  {"id": 5, "name": "Market Entry?", "project": "Expansion", "status": 0}
]`
)

// writeFixture lays out the three collections the way the files source expects.
func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range map[string]string{
		source.CompaniesPath:    companiesJSON,
		source.InteractionsPath: interactionsJSON,
		source.StudiesPath:      studiesJSON,
	} {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

// newTestConfig returns a valid configuration reading fixtures from sourceDir
// and syncing reports into targetDir.
func newTestConfig(sourceDir, targetDir string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.SourceCfg.Type = config.SourceFiles
	cfg.SourceCfg.Files.Path = sourceDir
	cfg.SyncCfg.Target = config.TargetDir
	cfg.SyncCfg.Dir = targetDir
	cfg.LoggerCfg.Level = "fatal"
	return cfg
}

// resetForTest isolates the package-level state commands share.
func resetForTest(t *testing.T) {
	t.Helper()
	cfgFile = ""
	verbose = false
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
}

// stubProvider hands out fixed collaborators.
type stubProvider struct {
	src     schemas.EntitySource
	store   schemas.FileStore
	fetcher archive.Fetcher
	db      mirrorDatabase
	err     error
}

func (p *stubProvider) Source(context.Context, config.Interface, *zap.Logger) (schemas.EntitySource, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.src, func() {}, nil
}

func (p *stubProvider) Store(context.Context, config.Interface, *zap.Logger) (schemas.FileStore, error) {
	if p.store == nil {
		return nil, errors.New("no store")
	}
	return p.store, nil
}

func (p *stubProvider) Fetcher(config.Interface, *zap.Logger) (archive.Fetcher, error) {
	return p.fetcher, nil
}

func (p *stubProvider) Database(context.Context, config.Interface, *zap.Logger) (mirrorDatabase, func(), error) {
	if p.db == nil {
		return nil, nil, errors.New("no database")
	}
	return p.db, func() {}, nil
}

// fixtureProvider reads the fixture collections and writes reports into a temp dir.
func fixtureProvider(t *testing.T) (*stubProvider, string) {
	t.Helper()
	out := t.TempDir()
	return &stubProvider{
		src:   source.NewFileSource(writeFixture(t), zap.NewNop()),
		store: remote.NewDirStore(out, zap.NewNop()),
	}, out
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, raw string) ([]byte, error) {
	if v, ok := f[raw]; ok {
		return []byte(v), nil
	}
	return nil, schemas.ErrNotFound
}

// mockDatabase mocks the mirror target.
type mockDatabase struct {
	mock.Mock
}

func (m *mockDatabase) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDatabase) Replace(ctx context.Context, c *schemas.Collections) error {
	return m.Called(ctx, c).Error(0)
}
