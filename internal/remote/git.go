package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
)

// Author identifies who commits report changes.
type Author struct {
	Name  string
	Email string
}

// GitStore writes reports into a local git worktree. Changes are staged as they are
// written and committed together by Flush.
type GitStore struct {
	mu       sync.Mutex
	worktree *git.Worktree
	files    localFiles
	author   Author
	pending  int
	now      func() time.Time
	logger   *zap.Logger
}

var _ schemas.FileStore = (*GitStore)(nil)

// OpenGitStore opens the repository whose worktree is at root.
func OpenGitStore(root string, author Author, logger *zap.Logger) (*GitStore, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", root, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree at %s: %w", root, err)
	}
	return &GitStore{
		worktree: wt,
		files:    localFiles{root: root},
		author:   author,
		now:      time.Now,
		logger:   logger.Named("git_store"),
	}, nil
}

func (s *GitStore) List(_ context.Context, dir string) ([]schemas.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files.list(dir)
}

func (s *GitStore) Put(_ context.Context, p string, content []byte, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.files.write(p, content, version); err != nil {
		return err
	}
	if _, err := s.worktree.Add(path.Clean(filepath.ToSlash(p))); err != nil {
		return fmt.Errorf("staging %s: %w", p, err)
	}
	s.pending++
	return nil
}

func (s *GitStore) Delete(_ context.Context, p string, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full, err := s.files.checkDelete(p, version)
	if err != nil {
		return err
	}
	_, err = s.worktree.Remove(path.Clean(filepath.ToSlash(p)))
	if errors.Is(err, index.ErrEntryNotFound) {
		// Never committed; only the working copy needs to go.
		err = os.Remove(full)
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	s.pending++
	return nil
}

// Flush commits every staged change in a single commit.
func (s *GitStore) Flush(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == 0 {
		return nil
	}
	hash, err := s.worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: s.author.Name, Email: s.author.Email, When: s.now()},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		s.logger.Debug("Reports unchanged, nothing to commit.")
		s.pending = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("committing reports: %w", err)
	}
	s.logger.Info("Committed reports.", zap.String("commit", hash.String()), zap.Int("changes", s.pending))
	s.pending = 0
	return nil
}
