// File: cmd/provider.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/archive"
	"github.com/mediumroast/mrcli/internal/config"
	"github.com/mediumroast/mrcli/internal/network"
	"github.com/mediumroast/mrcli/internal/remote"
	"github.com/mediumroast/mrcli/internal/retry"
	"github.com/mediumroast/mrcli/internal/source"
	"github.com/mediumroast/mrcli/internal/store"
)

// apiTimeout bounds a single request to the Mediumroast API.
const apiTimeout = 30 * time.Second

// mirrorDatabase is the PostgreSQL side of the mirror command.
type mirrorDatabase interface {
	Migrate(ctx context.Context) error
	Replace(ctx context.Context, c *schemas.Collections) error
}

// provider creates the collaborators commands work with. Tests inject fakes in
// place of live GitHub, HTTP and database connections.
type provider interface {
	// Source returns the configured entity source and a cleanup function.
	Source(ctx context.Context, cfg config.Interface, logger *zap.Logger) (schemas.EntitySource, func(), error)
	// Store returns the configured report store.
	Store(ctx context.Context, cfg config.Interface, logger *zap.Logger) (schemas.FileStore, error)
	// Fetcher returns the artifact downloader used for report packages.
	Fetcher(cfg config.Interface, logger *zap.Logger) (archive.Fetcher, error)
	// Database connects to the configured PostgreSQL database.
	Database(ctx context.Context, cfg config.Interface, logger *zap.Logger) (mirrorDatabase, func(), error)
}

type defaultProvider struct{}

// NewProvider returns the provider backed by real services.
func NewProvider() provider {
	return defaultProvider{}
}

func (defaultProvider) Source(ctx context.Context, cfg config.Interface, logger *zap.Logger) (schemas.EntitySource, func(), error) {
	noop := func() {}
	sc := cfg.Source()
	switch sc.Type {
	case config.SourceAPI:
		hc := network.NewDefaultClientConfig()
		hc.RequestTimeout = apiTimeout
		src, err := source.NewAPISource(sc.API.URL, sc.API.Token, network.NewClient(hc), newCaller(cfg, nil), logger)
		return src, noop, err
	case config.SourceGitHub:
		client, err := newGitHubClient(cfg.GitHub())
		if err != nil {
			return nil, nil, err
		}
		gh := cfg.GitHub()
		return source.NewGitHubSource(client, gh.Owner, gh.Repo, gh.Branch, newCaller(cfg, newLimiter(gh)), logger), noop, nil
	case config.SourceFiles:
		return source.NewFileSource(sc.Files.Path, logger), noop, nil
	case config.SourcePostgres:
		pool, err := connect(ctx, cfg.Database())
		if err != nil {
			return nil, nil, err
		}
		s, err := store.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
		}
		return s, closer(pool, logger), nil
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", sc.Type)
	}
}

func (defaultProvider) Store(_ context.Context, cfg config.Interface, logger *zap.Logger) (schemas.FileStore, error) {
	sc := cfg.Sync()
	switch sc.Target {
	case config.TargetGitHub:
		client, err := newGitHubClient(cfg.GitHub())
		if err != nil {
			return nil, err
		}
		gh := cfg.GitHub()
		return remote.NewGitHubStore(client, remote.GitHubOptions{
			Owner:   gh.Owner,
			Repo:    gh.Repo,
			Branch:  gh.Branch,
			Message: sc.CommitMessage,
		}, newCaller(cfg, newLimiter(gh)), logger), nil
	case config.TargetGit:
		gc := cfg.Git()
		return remote.OpenGitStore(gc.Path, remote.Author{Name: gc.Author.Name, Email: gc.Author.Email}, logger)
	case config.TargetDir:
		return remote.NewDirStore(sc.Dir, logger), nil
	default:
		return nil, fmt.Errorf("unknown sync target %q", sc.Target)
	}
}

func (defaultProvider) Fetcher(cfg config.Interface, logger *zap.Logger) (archive.Fetcher, error) {
	ac := cfg.Archive()
	caller := newCaller(cfg, nil)
	caller.Policy = caller.Policy.WithAttempts(ac.Retries)
	hc := network.NewDefaultClientConfig()
	hc.DisableCompression = true
	return archive.NewDownloader(ac.ObjectEndpoint, ac.Timeout, network.NewHTTPTransport(hc), caller, logger)
}

func (defaultProvider) Database(ctx context.Context, cfg config.Interface, logger *zap.Logger) (mirrorDatabase, func(), error) {
	pool, err := connect(ctx, cfg.Database())
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	return s, closer(pool, logger), nil
}

func connect(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	if db.URL == "" {
		return nil, fmt.Errorf("database URL is not configured (MRCLI_DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, db.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func closer(pool *pgxpool.Pool, logger *zap.Logger) func() {
	return func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
}

// newGitHubClient returns an API client for github.com or, when base_url is set,
// for a GitHub Enterprise server.
func newGitHubClient(gh config.GitHubConfig) (*github.Client, error) {
	client := github.NewClient(network.NewClient(nil))
	if gh.Token != "" {
		client = client.WithAuthToken(gh.Token)
	}
	if gh.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(gh.BaseURL, gh.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub base URL: %w", err)
		}
	}
	return client, nil
}

// newLimiter returns the request limiter for the GitHub API, or nil when rate is zero.
func newLimiter(gh config.GitHubConfig) *rate.Limiter {
	if gh.Rate <= 0 {
		return nil
	}
	burst := gh.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(gh.Rate), burst)
}

func newCaller(cfg config.Interface, limiter *rate.Limiter) retry.Caller {
	rc := cfg.Retry()
	policy := retry.DefaultPolicy().WithAttempts(rc.Attempts)
	if rc.InitialInterval > 0 {
		policy.InitialInterval = rc.InitialInterval
	}
	if rc.MaxInterval > 0 {
		policy.MaxInterval = rc.MaxInterval
	}
	return retry.Caller{Policy: policy, Limiter: limiter}
}
