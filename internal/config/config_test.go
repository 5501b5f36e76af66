// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediumroast/mrcli/internal/reporting"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "mrcli", cfg.Logger().ServiceName)
	assert.Equal(t, SourceGitHub, cfg.Source().Type)
	assert.Equal(t, "main", cfg.GitHub().Branch)
	assert.Equal(t, TargetGitHub, cfg.Sync().Target)
	assert.Equal(t, 1, cfg.Sync().Concurrency)
	assert.Equal(t, "Update Mediumroast reports", cfg.Sync().CommitMessage)
	assert.Equal(t, 60*time.Second, cfg.Archive().Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry().InitialInterval)
	assert.Equal(t, reporting.DefaultOptions(), cfg.Reports().Options())
}

// validConfig returns a default config that passes validation.
func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.GitHubCfg.Owner = "mediumroast"
	cfg.GitHubCfg.Repo = "intel"
	return cfg
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"unknown source": {
			func(c *Config) { c.SourceCfg.Type = "ftp" },
			`unknown source.type "ftp"`,
		},
		"api source without url": {
			func(c *Config) { c.SourceCfg.Type = SourceAPI },
			"source.api.url is required",
		},
		"api source with bad scheme": {
			func(c *Config) { c.SourceCfg.Type = SourceAPI; c.SourceCfg.API.URL = "ftp://x" },
			"must be an http or https URL",
		},
		"postgres source without url": {
			func(c *Config) { c.SourceCfg.Type = SourcePostgres },
			"database.url is required",
		},
		"github source without repo": {
			func(c *Config) { c.GitHubCfg.Repo = "" },
			"github.owner and github.repo are required for the github source",
		},
		"zero concurrency": {
			func(c *Config) { c.SyncCfg.Concurrency = 0 },
			"sync.concurrency must be a positive integer",
		},
		"dir target without dir": {
			func(c *Config) { c.SyncCfg.Target = TargetDir },
			"sync.dir is required",
		},
		"git target without author": {
			func(c *Config) { c.SyncCfg.Target = TargetGit; c.GitCfg.Author.Email = "" },
			"git.author.name and git.author.email are required",
		},
		"unknown target": {
			func(c *Config) { c.SyncCfg.Target = "s3" },
			`unknown sync.target "s3"`,
		},
		"no top insights": {
			func(c *Config) { c.ReportsCfg.TopInsights = 0 },
			"reports.top_insights must be a positive integer",
		},
		"negative rate": {
			func(c *Config) { c.GitHubCfg.Rate = -1 },
			"github.rate must not be negative",
		},
		"zero retries": {
			func(c *Config) { c.RetryCfg.Attempts = 0 },
			"retry.attempts must be a positive integer",
		},
		"bad object endpoint": {
			func(c *Config) { c.ArchiveCfg.ObjectEndpoint = "s3://bucket" },
			"archive.object_endpoint",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("files source and dir target", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SourceCfg.Type = SourceFiles
		cfg.SyncCfg.Target = TargetDir
		cfg.SyncCfg.Dir = "out"
		assert.NoError(t, cfg.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
source:
  type: api
  api:
    url: "https://api.mediumroast.io/v1"
github:
  owner: mediumroast
  repo: intel
  rate: 2.5
sync:
  target: git
  concurrency: 4
git:
  path: /srv/intel
reports:
  top_insights: 3
archive:
  timeout: 5s
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "https://api.mediumroast.io/v1", cfg.Source().API.URL)
		assert.Equal(t, 2.5, cfg.GitHub().Rate)
		assert.Equal(t, 4, cfg.Sync().Concurrency)
		assert.Equal(t, "/srv/intel", cfg.Git().Path)
		assert.Equal(t, "mrcli", cfg.Git().Author.Name)
		assert.Equal(t, 3, cfg.Reports().Options().TopInsights)
		assert.Equal(t, 5*time.Second, cfg.Archive().Timeout)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("source.type", SourceFiles)
		v.Set("sync.target", TargetDir)
		v.Set("sync.dir", "out")
		v.Set("sync.concurrency", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "sync.concurrency must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
source:
  type: postgres
github:
  owner: mediumroast
  repo: intel
database:
  url: "postgres://configfile/db"
`)))

		t.Setenv("MRCLI_GITHUB_TOKEN", "ghp_env_token")
		t.Setenv("MRCLI_API_TOKEN", "api_env_token")
		t.Setenv("MRCLI_DATABASE_URL", "postgres://envvar/db")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "ghp_env_token", cfg.GitHub().Token)
		assert.Equal(t, "api_env_token", cfg.Source().API.Token)
		assert.Equal(t, "postgres://envvar/db", cfg.Database().URL, "env overrides the config file")
	})

	t.Run("Home Directory Expansion", func(t *testing.T) {
		home, err := homedir.Dir()
		require.NoError(t, err)

		v := viper.New()
		SetDefaults(v)
		v.Set("source.type", SourceFiles)
		v.Set("source.files.path", "~/mediumroast")
		v.Set("sync.target", TargetDir)
		v.Set("sync.dir", "~/reports")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "mediumroast"), cfg.Source().Files.Path)
		assert.Equal(t, filepath.Join(home, "reports"), cfg.Sync().Dir)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/mrcli.log
  colors:
    info: green
retry:
  attempts: 5
  max_interval: 1m
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/mrcli.log", cfg.Logger().LogFile)
	assert.Equal(t, "green", cfg.Logger().Colors.Info)
	assert.Equal(t, 5, cfg.Retry().Attempts)
	assert.Equal(t, time.Minute, cfg.Retry().MaxInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry().InitialInterval)
}
