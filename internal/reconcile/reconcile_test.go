package reconcile_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/mocks"
	"github.com/mediumroast/mrcli/internal/reconcile"
	"github.com/mediumroast/mrcli/internal/remote"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func report(name string) schemas.ReportFile {
	return schemas.ReportFile{Name: name, Path: "Companies/" + name, Content: []byte("# " + name)}
}

func remoteFile(name, version string) schemas.RemoteFile {
	return schemas.RemoteFile{Name: name, Path: "Companies/" + name, Version: version}
}

func TestReconcile_DeletesStaleAndUpserts(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", ctx, "Companies").Return([]schemas.RemoteFile{
		remoteFile("README.md", "r1"),
		remoteFile("AcmeInc.md", "a1"),
		remoteFile("Defunct.md", "d1"),
	}, nil)
	store.On("Delete", ctx, "Companies/Defunct.md", "d1").Return(nil).Once()
	store.On("Put", ctx, "Companies/AcmeInc.md", []byte("# AcmeInc.md"), "a1").Return(nil).Once()
	store.On("Put", ctx, "Companies/BetaCo.md", []byte("# BetaCo.md"), "").Return(nil).Once()

	desired := []schemas.ReportFile{report("AcmeInc.md"), report("BetaCo.md")}
	r := reconcile.New(store, 2, zaptest.NewLogger(t))
	res, err := r.Reconcile(ctx, "Companies", desired, reconcile.Expected(desired))
	require.NoError(t, err)

	assert.Equal(t, []string{"Companies/Defunct.md"}, res.Deleted)
	assert.Equal(t, []string{"Companies/AcmeInc.md", "Companies/BetaCo.md"}, res.Written)
	assert.Empty(t, res.Failed)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Delete", ctx, "Companies/README.md", mock.Anything)
}

func TestReconcile_PartialFailure(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", ctx, "Companies").Return([]schemas.RemoteFile{remoteFile("AcmeInc.md", "stale")}, nil)
	store.On("Put", ctx, "Companies/AcmeInc.md", mock.Anything, "stale").
		Return(schemas.ErrRemoteConflict)
	store.On("Put", ctx, "Companies/BetaCo.md", mock.Anything, "").Return(nil)
	store.On("Put", ctx, "Companies/GammaLLC.md", mock.Anything, "").Return(errors.New("boom"))

	desired := []schemas.ReportFile{report("AcmeInc.md"), report("BetaCo.md"), report("GammaLLC.md")}
	res, err := reconcile.New(store, 3, zaptest.NewLogger(t)).
		Reconcile(ctx, "Companies", desired, reconcile.Expected(desired))
	require.Error(t, err)

	var batch *schemas.BatchError
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, []string{"Companies/AcmeInc.md", "Companies/GammaLLC.md"}, batch.FailedPaths())
	assert.Equal(t, []string{"Companies/BetaCo.md"}, batch.Succeeded)
	assert.ErrorIs(t, err, schemas.ErrRemoteConflict, "conflicts stay visible through the batch error")

	require.NotNil(t, res)
	assert.Equal(t, []string{"Companies/BetaCo.md"}, res.Written, "one failure does not cancel the rest")
}

func TestReconcile_ListFailure(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", ctx, "Studies").Return(nil, errors.New("unreachable"))

	res, err := reconcile.New(store, 1, zaptest.NewLogger(t)).Reconcile(ctx, "Studies", nil, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "listing Studies")
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_EmptyCollectionDeletesEverything(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", ctx, "Companies").Return([]schemas.RemoteFile{
		remoteFile("AcmeInc.md", "a1"), remoteFile("README.md", "r1"),
	}, nil)
	store.On("Delete", ctx, "Companies/AcmeInc.md", "a1").Return(nil)

	res, err := reconcile.New(store, 0, zaptest.NewLogger(t)).Reconcile(ctx, "Companies", nil, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Companies/AcmeInc.md"}, res.Deleted)
	assert.Empty(t, res.Written)
}

func TestPlan_HasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", ctx, "Companies").Return([]schemas.RemoteFile{
		remoteFile("Old.md", "o1"), remoteFile("AcmeInc.md", "a1"),
	}, nil)

	desired := []schemas.ReportFile{report("AcmeInc.md"), report("BetaCo.md")}
	plan, err := reconcile.New(store, 1, zaptest.NewLogger(t)).Plan(ctx, "Companies", desired, reconcile.Expected(desired))
	require.NoError(t, err)

	assert.Equal(t, []schemas.RemoteFile{remoteFile("Old.md", "o1")}, plan.Delete)
	assert.Equal(t, []schemas.ReportFile{report("BetaCo.md")}, plan.Create)
	require.Len(t, plan.Update, 1)
	assert.Equal(t, "a1", plan.Update[0].Version)
	assert.False(t, plan.Empty())
	store.AssertNumberOfCalls(t, "List", 1)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

// countingStore tracks how many writes are in flight at once.
type countingStore struct {
	*remote.DirStore
	inFlight, peak atomic.Int32
}

func (c *countingStore) Put(ctx context.Context, path string, content []byte, version string) error {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return c.DirStore.Put(ctx, path, content, version)
}

func TestReconcile_BoundedConcurrency(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{DirStore: remote.NewDirStore(t.TempDir(), zaptest.NewLogger(t))}

	var desired []schemas.ReportFile
	for _, name := range []string{"A.md", "B.md", "C.md", "D.md", "E.md", "F.md"} {
		desired = append(desired, report(name))
	}
	res, err := reconcile.New(store, 2, zaptest.NewLogger(t)).Reconcile(ctx, "Companies", desired, reconcile.Expected(desired))
	require.NoError(t, err)
	assert.Len(t, res.Written, 6)
	assert.LessOrEqual(t, store.peak.Load(), int32(2))

	t.Run("second run updates in place", func(t *testing.T) {
		res, err := reconcile.New(store, 2, zaptest.NewLogger(t)).Reconcile(ctx, "Companies", desired[:3], reconcile.Expected(desired[:3]))
		require.NoError(t, err)
		assert.Equal(t, []string{"Companies/D.md", "Companies/E.md", "Companies/F.md"}, res.Deleted)
		assert.Len(t, res.Written, 3)

		files, err := store.List(ctx, "Companies")
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})
}

func TestReconcile_ExcludedFilesAreUpdatedNotDeleted(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockFileStore)
	store.On("List", ctx, "Companies").Return([]schemas.RemoteFile{remoteFile("README.md", "r1")}, nil)
	store.On("Put", ctx, "Companies/README.md", []byte("# README.md"), "r1").Return(nil)

	desired := []schemas.ReportFile{report("README.md")}
	res, err := reconcile.New(store, 1, zaptest.NewLogger(t)).Reconcile(ctx, "Companies", desired, map[string]struct{}{})
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)
	assert.Equal(t, []string{"Companies/README.md"}, res.Written)
	store.AssertExpectations(t)
}
