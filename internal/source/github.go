package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/remote"
	"github.com/mediumroast/mrcli/internal/retry"
)

// GitHubSource reads the collections from the JSON files of a Mediumroast GitHub
// repository.
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	caller retry.Caller
	logger *zap.Logger
}

var _ schemas.EntitySource = (*GitHubSource)(nil)

func NewGitHubSource(client *github.Client, owner, repo, branch string, caller retry.Caller, logger *zap.Logger) *GitHubSource {
	logger = logger.Named("github_source")
	caller.Logger = logger
	return &GitHubSource{client: client, owner: owner, repo: repo, branch: branch, caller: caller, logger: logger}
}

// download returns the content of p, or nil when the file does not exist.
func (s *GitHubSource) download(ctx context.Context, p string) ([]byte, error) {
	var data []byte
	err := s.caller.Do(ctx, "download "+p, func() error {
		file, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, p,
			&github.RepositoryContentGetOptions{Ref: s.branch})
		if err != nil {
			return remote.ClassifyGitHub(err)
		}
		if file == nil {
			return retry.Permanent(fmt.Errorf("%s is a directory", p))
		}
		if file.GetEncoding() == "none" {
			// Files above the contents API size limit come back without a body.
			data, _, err = s.client.Git.GetBlobRaw(ctx, s.owner, s.repo, file.GetSHA())
			return remote.ClassifyGitHub(err)
		}
		content, err := file.GetContent()
		if err != nil {
			return retry.Permanent(fmt.Errorf("decoding %s: %w", p, err))
		}
		data = []byte(content)
		return nil
	})
	if errors.Is(err, schemas.ErrNotFound) {
		s.logger.Debug("Collection file missing, treating as empty.", zap.String("path", p))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", p, err)
	}
	return data, nil
}

func (s *GitHubSource) Companies(ctx context.Context) ([]schemas.Company, error) {
	data, err := s.download(ctx, CompaniesPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Company](data, "companies")
}

func (s *GitHubSource) Interactions(ctx context.Context) ([]schemas.Interaction, error) {
	data, err := s.download(ctx, InteractionsPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Interaction](data, "interactions")
}

func (s *GitHubSource) Studies(ctx context.Context) ([]schemas.Study, error) {
	data, err := s.download(ctx, StudiesPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Study](data, "studies")
}
