package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mediumroast/mrcli/api/schemas"
)

// -- File Store Mock --

// MockFileStore mocks schemas.FileStore.
type MockFileStore struct {
	mock.Mock
}

var _ schemas.FileStore = (*MockFileStore)(nil)

func (m *MockFileStore) List(ctx context.Context, dir string) ([]schemas.RemoteFile, error) {
	args := m.Called(ctx, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.RemoteFile), args.Error(1)
}

func (m *MockFileStore) Put(ctx context.Context, path string, content []byte, version string) error {
	return m.Called(ctx, path, content, version).Error(0)
}

func (m *MockFileStore) Delete(ctx context.Context, path string, version string) error {
	return m.Called(ctx, path, version).Error(0)
}

func (m *MockFileStore) Flush(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

// -- Entity Source Mock --

// MockEntitySource mocks schemas.EntitySource.
type MockEntitySource struct {
	mock.Mock
}

var _ schemas.EntitySource = (*MockEntitySource)(nil)

func (m *MockEntitySource) Companies(ctx context.Context) ([]schemas.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Company), args.Error(1)
}

func (m *MockEntitySource) Interactions(ctx context.Context) ([]schemas.Interaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Interaction), args.Error(1)
}

func (m *MockEntitySource) Studies(ctx context.Context) ([]schemas.Study, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Study), args.Error(1)
}
