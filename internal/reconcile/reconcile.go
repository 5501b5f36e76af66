// Package reconcile brings a directory of a remote file store in line with the set of
// reports generated for the current entity collection.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mediumroast/mrcli/api/schemas"
)

// DefaultConcurrency is the number of writes in flight when none is configured.
const DefaultConcurrency = 1

// Update is a desired file that replaces an existing remote file.
type Update struct {
	File    schemas.ReportFile
	Version string
}

// Plan is the set of changes a reconciliation would make.
type Plan struct {
	Delete []schemas.RemoteFile
	Create []schemas.ReportFile
	Update []Update
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Create) == 0 && len(p.Update) == 0
}

// Result records what a reconciliation did.
type Result struct {
	Deleted []string
	Written []string
	Failed  map[string]error
}

// Reconciler applies plans to a FileStore.
type Reconciler struct {
	store       schemas.FileStore
	concurrency int
	exclude     map[string]struct{}
	logger      *zap.Logger
}

// New returns a Reconciler writing at most concurrency files at once. Remote files named
// in exclude are never deleted but are still updated when desired. README.md is always
// excluded.
func New(store schemas.FileStore, concurrency int, logger *zap.Logger, exclude ...string) *Reconciler {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	ex := map[string]struct{}{"README.md": {}}
	for _, name := range exclude {
		ex[name] = struct{}{}
	}
	return &Reconciler{
		store:       store,
		concurrency: concurrency,
		exclude:     ex,
		logger:      logger.Named("reconcile"),
	}
}

// Plan lists dir and computes the deletions, creations and updates needed so that dir
// holds exactly the expected names. It has no side effects.
func (r *Reconciler) Plan(ctx context.Context, dir string, desired []schemas.ReportFile, expected map[string]struct{}) (*Plan, error) {
	remote, err := r.store.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	existing := make(map[string]schemas.RemoteFile, len(remote))
	plan := &Plan{}
	for _, f := range remote {
		_, excluded := r.exclude[f.Name]
		if _, keep := expected[f.Name]; !keep && !excluded {
			plan.Delete = append(plan.Delete, f)
			continue
		}
		existing[f.Name] = f
	}

	for _, f := range desired {
		if cur, ok := existing[f.Name]; ok {
			plan.Update = append(plan.Update, Update{File: f, Version: cur.Version})
		} else {
			plan.Create = append(plan.Create, f)
		}
	}
	sort.Slice(plan.Delete, func(i, j int) bool { return plan.Delete[i].Path < plan.Delete[j].Path })
	return plan, nil
}

// Reconcile deletes stale files in dir, then creates or updates every desired file. A
// failed write never cancels the others. When anything fails the partial Result is
// returned together with a *schemas.BatchError; nothing is rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, dir string, desired []schemas.ReportFile, expected map[string]struct{}) (*Result, error) {
	plan, err := r.Plan(ctx, dir, desired, expected)
	if err != nil {
		return nil, err
	}
	return r.Apply(ctx, plan)
}

// Apply executes a plan. Deletions finish before any write starts.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{Failed: make(map[string]error)}
	var mu sync.Mutex
	record := func(path string, done *[]string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed[path] = err
			r.logger.Warn("Report change failed.", zap.String("path", path), zap.Error(err))
			return
		}
		*done = append(*done, path)
	}

	var deletes errgroup.Group
	deletes.SetLimit(r.concurrency)
	for _, f := range plan.Delete {
		deletes.Go(func() error {
			record(f.Path, &res.Deleted, r.store.Delete(ctx, f.Path, f.Version))
			return nil
		})
	}
	_ = deletes.Wait()

	var writes errgroup.Group
	writes.SetLimit(r.concurrency)
	for _, f := range plan.Create {
		writes.Go(func() error {
			record(f.Path, &res.Written, r.store.Put(ctx, f.Path, f.Content, ""))
			return nil
		})
	}
	for _, u := range plan.Update {
		writes.Go(func() error {
			record(u.File.Path, &res.Written, r.store.Put(ctx, u.File.Path, u.File.Content, u.Version))
			return nil
		})
	}
	_ = writes.Wait()

	sort.Strings(res.Deleted)
	sort.Strings(res.Written)
	r.logger.Info("Reconciled reports.",
		zap.Int("deleted", len(res.Deleted)),
		zap.Int("written", len(res.Written)),
		zap.Int("failed", len(res.Failed)))

	if len(res.Failed) > 0 {
		succeeded := append(append([]string{}, res.Deleted...), res.Written...)
		sort.Strings(succeeded)
		return res, &schemas.BatchError{Failed: res.Failed, Succeeded: succeeded}
	}
	return res, nil
}

// Expected returns the set of names in files.
func Expected(files []schemas.ReportFile) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f.Name] = struct{}{}
	}
	return set
}
