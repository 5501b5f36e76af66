package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/retry"
)

// GitHubOptions locates the repository and branch reports are written to.
type GitHubOptions struct {
	Owner  string
	Repo   string
	Branch string
	// Message prefixes the commit message of every write.
	Message string
}

// GitHubStore writes reports through the GitHub contents API. Each write is its own
// commit, so Flush has nothing to do.
type GitHubStore struct {
	client *github.Client
	opts   GitHubOptions
	caller retry.Caller
	logger *zap.Logger
}

var _ schemas.FileStore = (*GitHubStore)(nil)

// NewGitHubStore wraps an authenticated client. The caller paces and retries every
// request.
func NewGitHubStore(client *github.Client, opts GitHubOptions, caller retry.Caller, logger *zap.Logger) *GitHubStore {
	if opts.Message == "" {
		opts.Message = "Update reports"
	}
	logger = logger.Named("github_store")
	caller.Logger = logger
	return &GitHubStore{client: client, opts: opts, caller: caller, logger: logger}
}

func (s *GitHubStore) List(ctx context.Context, dir string) ([]schemas.RemoteFile, error) {
	var files []schemas.RemoteFile
	err := s.caller.Do(ctx, "list "+dir, func() error {
		_, entries, _, err := s.client.Repositories.GetContents(ctx, s.opts.Owner, s.opts.Repo, dir,
			&github.RepositoryContentGetOptions{Ref: s.opts.Branch})
		if err != nil {
			return ClassifyGitHub(err)
		}
		files = files[:0]
		for _, e := range entries {
			if e.GetType() != "file" {
				continue
			}
			files = append(files, schemas.RemoteFile{Name: e.GetName(), Path: e.GetPath(), Version: e.GetSHA()})
		}
		return nil
	})
	if errors.Is(err, schemas.ErrNotFound) {
		// The directory is created by the first write.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return files, nil
}

func (s *GitHubStore) Put(ctx context.Context, path string, content []byte, version string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("%s: %s", s.opts.Message, path)),
		Content: content,
	}
	if s.opts.Branch != "" {
		opts.Branch = github.String(s.opts.Branch)
	}
	if version != "" {
		opts.SHA = github.String(version)
	}

	err := s.caller.Do(ctx, "put "+path, func() error {
		var err error
		if version == "" {
			_, _, err = s.client.Repositories.CreateFile(ctx, s.opts.Owner, s.opts.Repo, path, opts)
		} else {
			_, _, err = s.client.Repositories.UpdateFile(ctx, s.opts.Owner, s.opts.Repo, path, opts)
		}
		return ClassifyGitHub(err)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Debug("Wrote report.", zap.String("path", path), zap.Bool("update", version != ""))
	return nil
}

func (s *GitHubStore) Delete(ctx context.Context, path string, version string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("%s: remove %s", s.opts.Message, path)),
		SHA:     github.String(version),
	}
	if s.opts.Branch != "" {
		opts.Branch = github.String(s.opts.Branch)
	}
	err := s.caller.Do(ctx, "delete "+path, func() error {
		_, _, err := s.client.Repositories.DeleteFile(ctx, s.opts.Owner, s.opts.Repo, path, opts)
		return ClassifyGitHub(err)
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	s.logger.Debug("Deleted report.", zap.String("path", path))
	return nil
}

// Flush is a no-op; the contents API commits every write.
func (s *GitHubStore) Flush(context.Context, string) error { return nil }

// ClassifyGitHub maps a go-github error onto the error taxonomy and marks the ones
// not worth retrying as permanent.
func ClassifyGitHub(err error) error {
	if err == nil {
		return nil
	}
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return err
	}

	var respErr *github.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		// Transport failure.
		return err
	}
	switch code := respErr.Response.StatusCode; {
	case code == http.StatusNotFound:
		return retry.Permanent(fmt.Errorf("%w: %v", schemas.ErrNotFound, err))
	case code == http.StatusConflict:
		return retry.Permanent(fmt.Errorf("%w: %v", schemas.ErrRemoteConflict, err))
	case code == http.StatusUnprocessableEntity && mentionsSHA(respErr):
		return retry.Permanent(fmt.Errorf("%w: %v", schemas.ErrRemoteConflict, err))
	case retry.Retryable(code):
		return err
	default:
		return retry.Permanent(err)
	}
}

func mentionsSHA(e *github.ErrorResponse) bool {
	if strings.Contains(strings.ToLower(e.Message), "sha") {
		return true
	}
	for _, fe := range e.Errors {
		if strings.EqualFold(fe.Field, "sha") {
			return true
		}
	}
	return false
}
