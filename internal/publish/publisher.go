// Package publish turns the entity collections into the Markdown report tree and
// synchronises it to a remote file store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/reconcile"
	"github.com/mediumroast/mrcli/internal/reporting"
	"github.com/mediumroast/mrcli/internal/source"
)

// ReadmeName is the index file of the tree and of the company directory.
const ReadmeName = "README.md"

// Bundle is the full report tree generated from one load of the collections.
type Bundle struct {
	// Companies holds Companies/README.md followed by one file per company.
	Companies []schemas.ReportFile
	// Studies holds one file per study.
	Studies []schemas.ReportFile
	// Root is the top-level README.md.
	Root schemas.ReportFile
}

// Publisher builds report trees and keeps a remote store in sync with them.
type Publisher struct {
	source      schemas.EntitySource
	store       schemas.FileStore
	opts        reporting.Options
	concurrency int
	message     string
	renderer    reporting.MarkdownRenderer
	now         func() time.Time
	logger      *zap.Logger
}

// Settings holds the Publisher's tunables.
type Settings struct {
	Reports       reporting.Options
	Concurrency   int
	CommitMessage string
}

// NewPublisher wires a Publisher. store may be nil when only Build is used.
func NewPublisher(src schemas.EntitySource, store schemas.FileStore, settings Settings, logger *zap.Logger) *Publisher {
	if settings.CommitMessage == "" {
		settings.CommitMessage = "Update Mediumroast reports"
	}
	return &Publisher{
		source:      src,
		store:       store,
		opts:        settings.Reports,
		concurrency: settings.Concurrency,
		message:     settings.CommitMessage,
		now:         time.Now,
		logger:      logger.Named("publisher"),
	}
}

// Build loads the collections once and renders every report in the tree.
func (p *Publisher) Build(ctx context.Context) (*Bundle, error) {
	coll, err := source.Load(ctx, p.source)
	if err != nil {
		return nil, fmt.Errorf("loading collections: %w", err)
	}
	return p.BuildFrom(coll)
}

// BuildFrom renders the report tree for already loaded collections.
func (p *Publisher) BuildFrom(coll *schemas.Collections) (*Bundle, error) {
	p.logger.Info("Building reports",
		zap.Int("companies", len(coll.Companies)),
		zap.Int("interactions", len(coll.Interactions)),
		zap.Int("studies", len(coll.Studies)))

	var b Bundle

	index, err := reporting.CompaniesReport(coll.Companies, p.opts)
	if err != nil {
		return nil, err
	}
	readme, err := p.render(reporting.CompaniesDir, ReadmeName, index)
	if err != nil {
		return nil, err
	}
	b.Companies = append(b.Companies, readme)

	owners := make(map[string]string, len(coll.Companies))
	for _, c := range coll.Companies {
		name := reporting.FileName(c.Name, reporting.MarkdownExt)
		if err := claim(owners, name, c.Name); err != nil {
			return nil, err
		}
		doc, err := reporting.CompanyReport(c, coll.Interactions, p.opts)
		if err != nil {
			return nil, err
		}
		f, err := p.render(reporting.CompaniesDir, name, doc)
		if err != nil {
			return nil, err
		}
		b.Companies = append(b.Companies, f)
	}

	b.Root, err = p.render("", ReadmeName, reporting.StudiesReport(coll.Studies, p.opts))
	if err != nil {
		return nil, err
	}

	owners = make(map[string]string, len(coll.Studies))
	for _, s := range coll.Studies {
		name := reporting.FileName(s.Name, reporting.MarkdownExt)
		if err := claim(owners, name, s.Name); err != nil {
			return nil, err
		}
		doc, err := reporting.StudyReport(s, coll.Companies, coll.Interactions, p.opts)
		if err != nil {
			return nil, err
		}
		f, err := p.render(reporting.StudiesDir, name, doc)
		if err != nil {
			return nil, err
		}
		b.Studies = append(b.Studies, f)
	}
	return &b, nil
}

// claim records that owner produces file name. Two entities whose names sanitize to the
// same file would overwrite each other, and a name with a path separator would land
// in a subdirectory that reconciliation never lists.
func claim(owners map[string]string, name, owner string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q maps to report file %s, which is not a plain file name", schemas.ErrMalformedInput, owner, name)
	}
	if prev, taken := owners[name]; taken {
		return fmt.Errorf("%w: %q and %q both map to report file %s", schemas.ErrMalformedInput, prev, owner, name)
	}
	owners[name] = owner
	return nil
}

func (p *Publisher) render(dir, name string, doc reporting.Document) (schemas.ReportFile, error) {
	content, err := p.renderer.Render(doc)
	if err != nil {
		return schemas.ReportFile{}, fmt.Errorf("rendering %s: %w", path.Join(dir, name), err)
	}
	return schemas.ReportFile{Name: name, Path: path.Join(dir, name), Content: content}, nil
}

// SyncReport summarises one synchronisation run.
type SyncReport struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Companies *reconcile.Result
	Studies   *reconcile.Result
	// RootWritten tells whether the top-level README.md was written.
	RootWritten bool
}

// Plans is a dry run of a synchronisation, keyed by directory.
type Plans map[string]*reconcile.Plan

// Plan computes what Sync would change without touching the store.
func (p *Publisher) Plan(ctx context.Context) (Plans, error) {
	if p.store == nil {
		return nil, errors.New("no report store configured")
	}
	b, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	r := reconcile.New(p.store, p.concurrency, p.logger)
	plans := make(Plans, 3)
	for dir, files := range map[string][]schemas.ReportFile{
		reporting.CompaniesDir: b.Companies,
		reporting.StudiesDir:   b.Studies,
	} {
		plan, err := r.Plan(ctx, dir, files, reconcile.Expected(files))
		if err != nil {
			return nil, err
		}
		plans[dir] = plan
	}

	// The root holds more than reports, so it is only ever upserted.
	version, err := p.currentVersion(ctx, b.Root)
	if err != nil {
		return nil, err
	}
	root := &reconcile.Plan{}
	if version == "" {
		root.Create = []schemas.ReportFile{b.Root}
	} else {
		root.Update = []reconcile.Update{{File: b.Root, Version: version}}
	}
	plans[""] = root
	return plans, nil
}

// Sync builds the report tree and reconciles the Companies and Studies directories
// against the store, upserts the root README.md, and flushes the store. Every part is
// attempted even if an earlier one fails; partial failures surface as a single
// *schemas.BatchError.
func (p *Publisher) Sync(ctx context.Context) (*SyncReport, error) {
	if p.store == nil {
		return nil, errors.New("no report store configured")
	}
	report := &SyncReport{RunID: uuid.NewString(), Started: p.now()}
	logger := p.logger.With(zap.String("run_id", report.RunID))

	b, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}

	r := reconcile.New(p.store, p.concurrency, logger)
	batch := &schemas.BatchError{Failed: make(map[string]error)}
	var fatal []error

	merge := func(res *reconcile.Result, err error) {
		if res != nil {
			batch.Succeeded = append(batch.Succeeded, res.Deleted...)
			batch.Succeeded = append(batch.Succeeded, res.Written...)
			for k, v := range res.Failed {
				batch.Failed[k] = v
			}
		}
		var be *schemas.BatchError
		if err != nil && !errors.As(err, &be) {
			fatal = append(fatal, err)
		}
	}

	report.Companies, err = r.Reconcile(ctx, reporting.CompaniesDir, b.Companies, reconcile.Expected(b.Companies))
	merge(report.Companies, err)
	report.Studies, err = r.Reconcile(ctx, reporting.StudiesDir, b.Studies, reconcile.Expected(b.Studies))
	merge(report.Studies, err)

	if err := p.upsert(ctx, b.Root); err != nil {
		batch.Failed[b.Root.Path] = err
	} else {
		report.RootWritten = true
		batch.Succeeded = append(batch.Succeeded, b.Root.Path)
	}

	if err := p.store.Flush(ctx, p.message); err != nil {
		fatal = append(fatal, fmt.Errorf("flushing reports: %w", err))
	}
	report.Finished = p.now()

	logger.Info("Sync finished",
		zap.Int("succeeded", len(batch.Succeeded)),
		zap.Int("failed", len(batch.Failed)),
		zap.Duration("duration", report.Finished.Sub(report.Started)))

	if len(fatal) > 0 {
		return report, errors.Join(fatal...)
	}
	if len(batch.Failed) > 0 {
		sort.Strings(batch.Succeeded)
		return report, batch
	}
	return report, nil
}

// currentVersion returns the store's version of f, or "" when it does not exist yet.
func (p *Publisher) currentVersion(ctx context.Context, f schemas.ReportFile) (string, error) {
	dir := path.Dir(f.Path)
	if dir == "." {
		dir = ""
	}
	existing, err := p.store.List(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("listing %q: %w", dir, err)
	}
	for _, e := range existing {
		if e.Name == f.Name {
			return e.Version, nil
		}
	}
	return "", nil
}

// upsert writes a single file, updating it in place when it already exists.
func (p *Publisher) upsert(ctx context.Context, f schemas.ReportFile) error {
	version, err := p.currentVersion(ctx, f)
	if err != nil {
		return err
	}
	return p.store.Put(ctx, f.Path, f.Content, version)
}
