// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/mediumroast/mrcli/internal/reporting"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Source() SourceConfig
	GitHub() GitHubConfig
	Git() GitConfig
	Sync() SyncConfig
	Reports() ReportsConfig
	Archive() ArchiveConfig
	Retry() RetryConfig
	Database() DatabaseConfig
}

// Config holds the entire application configuration. Sections are read through
// the Interface getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	SourceCfg   SourceConfig   `mapstructure:"source" yaml:"source"`
	GitHubCfg   GitHubConfig   `mapstructure:"github" yaml:"github"`
	GitCfg      GitConfig      `mapstructure:"git" yaml:"git"`
	SyncCfg     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	ReportsCfg  ReportsConfig  `mapstructure:"reports" yaml:"reports"`
	ArchiveCfg  ArchiveConfig  `mapstructure:"archive" yaml:"archive"`
	RetryCfg    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Source() SourceConfig     { return c.SourceCfg }
func (c *Config) GitHub() GitHubConfig     { return c.GitHubCfg }
func (c *Config) Git() GitConfig           { return c.GitCfg }
func (c *Config) Sync() SyncConfig         { return c.SyncCfg }
func (c *Config) Reports() ReportsConfig   { return c.ReportsCfg }
func (c *Config) Archive() ArchiveConfig   { return c.ArchiveCfg }
func (c *Config) Retry() RetryConfig       { return c.RetryCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Entity source kinds.
const (
	SourceAPI      = "api"
	SourceGitHub   = "github"
	SourceFiles    = "files"
	SourcePostgres = "postgres"
)

// SourceConfig selects where companies, interactions and studies are read from.
// The github kind reads the repository named in the github section and the
// postgres kind the database section.
type SourceConfig struct {
	Type  string            `mapstructure:"type" yaml:"type"`
	API   APISourceConfig   `mapstructure:"api" yaml:"api"`
	Files FilesSourceConfig `mapstructure:"files" yaml:"files"`
}

// APISourceConfig points at the Mediumroast REST API.
type APISourceConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Token string `mapstructure:"token" yaml:"-"`
}

// FilesSourceConfig points at a local copy of the JSON collections.
type FilesSourceConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// GitHubConfig defines the repository holding the collections and reports.
type GitHubConfig struct {
	Token   string `mapstructure:"token" yaml:"-"`
	Owner   string `mapstructure:"owner" yaml:"owner"`
	Repo    string `mapstructure:"repo" yaml:"repo"`
	Branch  string `mapstructure:"branch" yaml:"branch"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Rate is the sustained number of API requests per second.
	Rate  float64 `mapstructure:"rate" yaml:"rate"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// GitConfig defines the local worktree reports are committed to.
type GitConfig struct {
	Path   string       `mapstructure:"path" yaml:"path"`
	Author AuthorConfig `mapstructure:"author" yaml:"author"`
}

// AuthorConfig is the identity commits are made under.
type AuthorConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Email string `mapstructure:"email" yaml:"email"`
}

// Report store kinds.
const (
	TargetGitHub = "github"
	TargetGit    = "git"
	TargetDir    = "dir"
)

// SyncConfig controls where and how the Markdown tree is reconciled.
type SyncConfig struct {
	Target        string `mapstructure:"target" yaml:"target"`
	Dir           string `mapstructure:"dir" yaml:"dir"`
	Concurrency   int    `mapstructure:"concurrency" yaml:"concurrency"`
	CommitMessage string `mapstructure:"commit_message" yaml:"commit_message"`
}

// ReportsConfig tunes report content and terminal previews.
type ReportsConfig struct {
	Title          string `mapstructure:"title" yaml:"title"`
	TopInsights    int    `mapstructure:"top_insights" yaml:"top_insights"`
	AbstractLength int    `mapstructure:"abstract_length" yaml:"abstract_length"`
	PreviewStyle   string `mapstructure:"preview_style" yaml:"preview_style"`
	PreviewWidth   int    `mapstructure:"preview_width" yaml:"preview_width"`
}

// Options returns the report assembly options.
func (r ReportsConfig) Options() reporting.Options {
	return reporting.Options{
		Title:          r.Title,
		TopInsights:    r.TopInsights,
		AbstractLength: r.AbstractLength,
	}
}

// ArchiveConfig controls artifact downloads for report packages.
type ArchiveConfig struct {
	// ObjectEndpoint is the HTTP base that s3:// artifact URLs resolve against.
	ObjectEndpoint string        `mapstructure:"object_endpoint" yaml:"object_endpoint"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries        int           `mapstructure:"retries" yaml:"retries"`
}

// RetryConfig is the backoff applied to GitHub and API calls.
type RetryConfig struct {
	Attempts        int           `mapstructure:"attempts" yaml:"attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "mrcli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Source --
	v.SetDefault("source.type", SourceGitHub)
	v.SetDefault("source.files.path", ".")

	// -- GitHub --
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.rate", 10.0)
	v.SetDefault("github.burst", 5)

	// -- Git --
	v.SetDefault("git.path", ".")
	v.SetDefault("git.author.name", "mrcli")
	v.SetDefault("git.author.email", "mrcli@mediumroast.io")

	// -- Sync --
	v.SetDefault("sync.target", TargetGitHub)
	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("sync.commit_message", "Update Mediumroast reports")

	// -- Reports --
	defaults := reporting.DefaultOptions()
	v.SetDefault("reports.title", defaults.Title)
	v.SetDefault("reports.top_insights", defaults.TopInsights)
	v.SetDefault("reports.abstract_length", defaults.AbstractLength)
	v.SetDefault("reports.preview_style", reporting.DefaultPreviewStyle)
	v.SetDefault("reports.preview_width", 100)

	// -- Archive --
	v.SetDefault("archive.timeout", "60s")
	v.SetDefault("archive.retries", 3)

	// -- Retry --
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("github.token", "MRCLI_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("source.api.token", "MRCLI_API_TOKEN")
	_ = v.BindEnv("database.url", "MRCLI_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every filesystem path.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.LoggerCfg.LogFile, &c.SourceCfg.Files.Path, &c.GitCfg.Path, &c.SyncCfg.Dir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.SourceCfg.Validate(c.GitHubCfg, c.DatabaseCfg); err != nil {
		return fmt.Errorf("source configuration invalid: %w", err)
	}
	if err := c.SyncCfg.Validate(c.GitHubCfg, c.GitCfg); err != nil {
		return fmt.Errorf("sync configuration invalid: %w", err)
	}
	if err := c.ReportsCfg.Validate(); err != nil {
		return fmt.Errorf("reports configuration invalid: %w", err)
	}
	if c.GitHubCfg.Rate < 0 {
		return fmt.Errorf("github.rate must not be negative")
	}
	if c.RetryCfg.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be a positive integer")
	}
	if c.ArchiveCfg.Retries <= 0 {
		return fmt.Errorf("archive.retries must be a positive integer")
	}
	if c.ArchiveCfg.Timeout <= 0 {
		return fmt.Errorf("archive.timeout must be a positive duration")
	}
	if c.ArchiveCfg.ObjectEndpoint != "" {
		if err := checkHTTPURL(c.ArchiveCfg.ObjectEndpoint); err != nil {
			return fmt.Errorf("archive.object_endpoint: %w", err)
		}
	}
	return nil
}

// Validate checks that the selected source has what it needs.
func (s *SourceConfig) Validate(gh GitHubConfig, db DatabaseConfig) error {
	switch s.Type {
	case SourceAPI:
		if s.API.URL == "" {
			return fmt.Errorf("source.api.url is required for the api source")
		}
		return checkHTTPURL(s.API.URL)
	case SourceGitHub:
		if gh.Owner == "" || gh.Repo == "" {
			return fmt.Errorf("github.owner and github.repo are required for the github source")
		}
	case SourceFiles:
		if s.Files.Path == "" {
			return fmt.Errorf("source.files.path is required for the files source")
		}
	case SourcePostgres:
		if db.URL == "" {
			return fmt.Errorf("database.url is required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown source.type %q", s.Type)
	}
	return nil
}

// Validate checks that the selected report store has what it needs.
func (s *SyncConfig) Validate(gh GitHubConfig, git GitConfig) error {
	if s.Concurrency <= 0 {
		return fmt.Errorf("sync.concurrency must be a positive integer")
	}
	switch s.Target {
	case TargetGitHub:
		if gh.Owner == "" || gh.Repo == "" {
			return fmt.Errorf("github.owner and github.repo are required for the github target")
		}
	case TargetGit:
		if git.Path == "" {
			return fmt.Errorf("git.path is required for the git target")
		}
		if git.Author.Name == "" || git.Author.Email == "" {
			return fmt.Errorf("git.author.name and git.author.email are required for the git target")
		}
	case TargetDir:
		if s.Dir == "" {
			return fmt.Errorf("sync.dir is required for the dir target")
		}
	default:
		return fmt.Errorf("unknown sync.target %q", s.Target)
	}
	return nil
}

// Validate checks the report tunables.
func (r *ReportsConfig) Validate() error {
	if r.TopInsights <= 0 {
		return fmt.Errorf("reports.top_insights must be a positive integer")
	}
	if r.AbstractLength < 0 {
		return fmt.Errorf("reports.abstract_length must not be negative")
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http or https URL", raw)
	}
	return nil
}
