package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/mocks"
	"github.com/mediumroast/mrcli/internal/publish"
	"github.com/mediumroast/mrcli/internal/remote"
	"github.com/mediumroast/mrcli/internal/reporting"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func fixtureSource(t *testing.T) *mocks.MockEntitySource {
	t.Helper()
	src := new(mocks.MockEntitySource)
	src.On("Companies", mock.Anything).Return(decode[[]schemas.Company](t, `[
		{"id": 1, "name": "Acme, Inc.", "role": "Owner", "linked_interactions": {"Acme Q1 Call": {}}},
		{"id": 2, "name": "Beta Co", "role": "Competitor", "linked_interactions": {}}
	]`), nil)
	src.On("Interactions", mock.Anything).Return(decode[[]schemas.Interaction](t, `[
		{"id": 10, "name": "Acme Q1 Call", "guid": "guid-1", "date": "20240301", "abstract": "Pricing call."}
	]`), nil)
	src.On("Studies", mock.Anything).Return(decode[[]schemas.Study](t, `[
		{"id": 5, "name": "Market Entry?", "status": 0}
	]`), nil)
	return src
}

func newPublisher(t *testing.T, src schemas.EntitySource, store schemas.FileStore) *publish.Publisher {
	t.Helper()
	return publish.NewPublisher(src, store, publish.Settings{
		Reports:     reporting.DefaultOptions(),
		Concurrency: 2,
	}, zaptest.NewLogger(t))
}

func TestBuild(t *testing.T) {
	b, err := newPublisher(t, fixtureSource(t), nil).Build(context.Background())
	require.NoError(t, err)

	var companyPaths []string
	for _, f := range b.Companies {
		companyPaths = append(companyPaths, f.Path)
	}
	assert.Equal(t, []string{"Companies/README.md", "Companies/AcmeInc.md", "Companies/BetaCo.md"}, companyPaths)
	require.Len(t, b.Studies, 1)
	assert.Equal(t, "Studies/MarketEntry.md", b.Studies[0].Path)
	assert.Equal(t, "MarketEntry.md", b.Studies[0].Name)
	assert.Equal(t, "README.md", b.Root.Path)
	assert.Contains(t, string(b.Root.Content), "[Market Entry?](./Studies/MarketEntry.md)")
	assert.Contains(t, string(b.Companies[0].Content), "[Acme, Inc.](./AcmeInc.md)")
}

func TestBuild_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		src := new(mocks.MockEntitySource)
		boom := errors.New("boom")
		src.On("Companies", mock.Anything).Return(nil, boom)
		src.On("Interactions", mock.Anything).Return([]schemas.Interaction{}, nil).Maybe()
		src.On("Studies", mock.Anything).Return([]schemas.Study{}, nil).Maybe()

		_, err := newPublisher(t, src, nil).Build(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("colliding file names", func(t *testing.T) {
		coll := &schemas.Collections{Companies: []schemas.Company{
			{Name: "Acme Inc", LinkedInteractions: map[string]schemas.Relation{}},
			{Name: "Acme, Inc.", LinkedInteractions: map[string]schemas.Relation{}},
		}}
		_, err := newPublisher(t, nil, nil).BuildFrom(coll)
		require.Error(t, err)
		assert.ErrorIs(t, err, schemas.ErrMalformedInput)
		assert.Contains(t, err.Error(), "AcmeInc.md")
	})
}

func TestSync_RejectsNamesWithPathSeparators(t *testing.T) {
	ctx := context.Background()
	for name, coll := range map[string]*schemas.Collections{
		"company": {Companies: []schemas.Company{{Name: "AC/DC", LinkedInteractions: map[string]schemas.Relation{}}}},
		"study":   {Studies: []schemas.Study{{Name: `Q1\Q2 review`}}},
	} {
		t.Run(name, func(t *testing.T) {
			src := new(mocks.MockEntitySource)
			src.On("Companies", mock.Anything).Return(coll.Companies, nil)
			src.On("Interactions", mock.Anything).Return([]schemas.Interaction{}, nil)
			src.On("Studies", mock.Anything).Return(coll.Studies, nil)

			root := t.TempDir()
			p := newPublisher(t, src, remote.NewDirStore(root, zaptest.NewLogger(t)))

			// Every run fails the same way instead of leaving an unlisted file behind.
			for run := 0; run < 2; run++ {
				_, err := p.Sync(ctx)
				require.ErrorIs(t, err, schemas.ErrMalformedInput)
				assert.Contains(t, err.Error(), "not a plain file name")
			}
			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing is written")
		})
	}
}

func TestSync_DirStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := remote.NewDirStore(root, zaptest.NewLogger(t))

	// Left over from a company that no longer exists.
	require.NoError(t, store.Put(ctx, "Companies/Defunct.md", []byte("# Gone"), ""))
	require.NoError(t, store.Put(ctx, "NOTES.md", []byte("keep me"), ""))

	p := newPublisher(t, fixtureSource(t), store)

	plans, err := p.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, plans[reporting.CompaniesDir].Delete, 1)
	assert.Equal(t, "Companies/Defunct.md", plans[reporting.CompaniesDir].Delete[0].Path)
	assert.Len(t, plans[reporting.CompaniesDir].Create, 3)
	assert.Len(t, plans[""].Create, 1)
	_, err = os.Stat(filepath.Join(root, "README.md"))
	assert.True(t, os.IsNotExist(err), "planning writes nothing")

	report, err := p.Sync(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.RootWritten)
	assert.Equal(t, []string{"Companies/Defunct.md"}, report.Companies.Deleted)
	assert.Len(t, report.Companies.Written, 3)
	assert.Equal(t, []string{"Studies/MarketEntry.md"}, report.Studies.Written)

	for _, rel := range []string{"README.md", "NOTES.md", "Companies/README.md", "Companies/AcmeInc.md", "Companies/BetaCo.md", "Studies/MarketEntry.md"} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}
	_, err = os.Stat(filepath.Join(root, "Companies", "Defunct.md"))
	assert.True(t, os.IsNotExist(err))

	t.Run("second sync updates in place", func(t *testing.T) {
		report, err := p.Sync(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Companies.Deleted)
		assert.Len(t, report.Companies.Written, 3)
		assert.True(t, report.RootWritten)
	})
}

func TestSync_PartialFailure(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", mock.Anything, mock.Anything).Return([]schemas.RemoteFile{}, nil)
	store.On("Put", mock.Anything, "Companies/BetaCo.md", mock.Anything, "").Return(schemas.ErrRemoteConflict)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Flush", mock.Anything, "Update Mediumroast reports").Return(nil).Once()

	report, err := newPublisher(t, fixtureSource(t), store).Sync(ctx)
	require.Error(t, err)

	var batch *schemas.BatchError
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, []string{"Companies/BetaCo.md"}, batch.FailedPaths())
	assert.Contains(t, batch.Succeeded, "README.md")
	assert.Contains(t, batch.Succeeded, "Studies/MarketEntry.md")
	assert.ErrorIs(t, err, schemas.ErrRemoteConflict)
	require.NotNil(t, report)
	store.AssertCalled(t, "Flush", mock.Anything, "Update Mediumroast reports")
}

func TestSync_FlushFailure(t *testing.T) {
	store := new(mocks.MockFileStore)
	store.On("List", mock.Anything, mock.Anything).Return([]schemas.RemoteFile{}, nil)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Flush", mock.Anything, mock.Anything).Return(errors.New("push rejected"))

	_, err := newPublisher(t, fixtureSource(t), store).Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push rejected")
}

func TestSync_RequiresStore(t *testing.T) {
	_, err := newPublisher(t, fixtureSource(t), nil).Sync(context.Background())
	assert.Error(t, err)
	_, err = newPublisher(t, fixtureSource(t), nil).Plan(context.Background())
	assert.Error(t, err)
}
