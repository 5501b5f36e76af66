package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/mediumroast/mrcli/internal/config"
)

// -- Configuration Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// NewMockConfig returns a MockConfig whose getters all answer with the sections of cfg.
func NewMockConfig(cfg *config.Config) *MockConfig {
	m := new(MockConfig)
	m.On("Logger").Return(cfg.Logger()).Maybe()
	m.On("Source").Return(cfg.Source()).Maybe()
	m.On("GitHub").Return(cfg.GitHub()).Maybe()
	m.On("Git").Return(cfg.Git()).Maybe()
	m.On("Sync").Return(cfg.Sync()).Maybe()
	m.On("Reports").Return(cfg.Reports()).Maybe()
	m.On("Archive").Return(cfg.Archive()).Maybe()
	m.On("Retry").Return(cfg.Retry()).Maybe()
	m.On("Database").Return(cfg.Database()).Maybe()
	return m
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Source() config.SourceConfig {
	args := m.Called()
	return args.Get(0).(config.SourceConfig)
}

func (m *MockConfig) GitHub() config.GitHubConfig {
	args := m.Called()
	return args.Get(0).(config.GitHubConfig)
}

func (m *MockConfig) Git() config.GitConfig {
	args := m.Called()
	return args.Get(0).(config.GitConfig)
}

func (m *MockConfig) Sync() config.SyncConfig {
	args := m.Called()
	return args.Get(0).(config.SyncConfig)
}

func (m *MockConfig) Reports() config.ReportsConfig {
	args := m.Called()
	return args.Get(0).(config.ReportsConfig)
}

func (m *MockConfig) Archive() config.ArchiveConfig {
	args := m.Called()
	return args.Get(0).(config.ArchiveConfig)
}

func (m *MockConfig) Retry() config.RetryConfig {
	args := m.Called()
	return args.Get(0).(config.RetryConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}
