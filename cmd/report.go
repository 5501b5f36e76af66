// File: cmd/report.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/archive"
	"github.com/mediumroast/mrcli/internal/config"
	"github.com/mediumroast/mrcli/internal/observability"
	"github.com/mediumroast/mrcli/internal/reporting"
	"github.com/mediumroast/mrcli/internal/source"
)

const (
	kindStudy       = "study"
	kindCompany     = "company"
	kindInteraction = "interaction"
)

// reportRequest describes one report to generate.
type reportRequest struct {
	Kind    string
	Name    string
	Output  string
	Format  string
	Package string
	Preview bool
}

// newReportCmd creates the `report` command and its per-report subcommands.
func newReportCmd(p provider) *cobra.Command {
	var req reportRequest

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a Markdown or Word report",
		Long: `Renders one report from the current collections. The companies and studies
reports are the indexes of the report tree; study, company and interaction
render a single entity selected with --name (a name or an id).`,
	}
	reportCmd.PersistentFlags().StringVarP(&req.Output, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	reportCmd.PersistentFlags().StringVarP(&req.Format, "format", "f", reporting.FormatMarkdown, "Report format: markdown or docx.")
	reportCmd.PersistentFlags().BoolVar(&req.Preview, "preview", false, "Render the Markdown report for the terminal.")

	run := func(kind string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			r := req
			r.Kind = kind
			return runReport(ctx, observability.GetLogger(), cfg, r, p, cmd.OutOrStdout())
		}
	}

	for _, kind := range []string{kindCompanies, kindStudies} {
		reportCmd.AddCommand(&cobra.Command{
			Use:   kind,
			Short: "Generate the " + kind + " index report",
			Args:  cobra.NoArgs,
			RunE:  run(kind),
		})
	}
	for _, kind := range []string{kindStudy, kindCompany, kindInteraction} {
		sub := &cobra.Command{
			Use:   kind,
			Short: "Generate the report of one " + kind,
			Args:  cobra.NoArgs,
			RunE:  run(kind),
		}
		sub.Flags().StringVar(&req.Name, "name", "", "name or id of the "+kind+" (required)")
		_ = sub.MarkFlagRequired("name")
		if kind != kindStudy {
			sub.Flags().StringVar(&req.Package, "package", "", "Write a ZIP package with the report and its source artifacts to this path.")
		}
		reportCmd.AddCommand(sub)
	}
	return reportCmd
}

// runReport contains the core, testable logic for generating a report.
func runReport(ctx context.Context, logger *zap.Logger, cfg config.Interface, req reportRequest, p provider, out io.Writer) error {
	logger.Info("Starting report generation", zap.String("report", req.Kind), zap.String("name", req.Name))

	renderer, err := reporting.NewRenderer(req.Format)
	if err != nil {
		return err
	}
	if req.Preview && renderer.Extension() != reporting.MarkdownExt {
		return errors.New("--preview needs the markdown format")
	}
	if req.Output == "" && req.Package == "" && !req.Preview && renderer.Extension() == reporting.DOCXExt {
		return errors.New("docx reports need an output path (-o)")
	}

	src, cleanup, err := p.Source(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer cleanup()

	coll, err := source.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}

	doc, artifacts, err := assemble(coll, req, cfg.Reports().Options())
	if err != nil {
		return err
	}

	switch {
	case req.Preview:
		content, err := reporting.MarkdownRenderer{}.Render(doc)
		if err != nil {
			return err
		}
		rc := cfg.Reports()
		view, err := reporting.Preview(content, rc.PreviewWidth, rc.PreviewStyle)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, view)
		return err

	case req.Package != "":
		return writePackage(ctx, logger, cfg, p, renderer, doc, req, artifacts)

	case req.Output == "":
		content, err := renderer.Render(doc)
		if err != nil {
			return fmt.Errorf("failed to render %q: %w", doc.Title, err)
		}
		_, err = out.Write(content)
		return err

	default:
		path, err := homedir.Expand(req.Output)
		if err != nil {
			return err
		}
		if err := reporting.Write(renderer, doc, path); err != nil {
			return err
		}
		logger.Info("Report successfully written to file", zap.String("path", path))
		return nil
	}
}

// assemble builds the requested document and lists the interactions whose
// artifacts belong in its package.
func assemble(coll *schemas.Collections, req reportRequest, opts reporting.Options) (reporting.Document, []schemas.Interaction, error) {
	switch req.Kind {
	case kindCompanies:
		doc, err := reporting.CompaniesReport(coll.Companies, opts)
		return doc, nil, err
	case kindStudies:
		return reporting.StudiesReport(coll.Studies, opts), nil, nil
	case kindStudy:
		s, err := source.Find(coll.Studies, req.Name, source.StudyKey)
		if err != nil {
			return reporting.Document{}, nil, fmt.Errorf("study %w", err)
		}
		doc, err := reporting.StudyReport(s, coll.Companies, coll.Interactions, opts)
		return doc, nil, err
	case kindCompany:
		c, err := source.Find(coll.Companies, req.Name, source.CompanyKey)
		if err != nil {
			return reporting.Document{}, nil, fmt.Errorf("company %w", err)
		}
		doc, err := reporting.CompanyReport(c, coll.Interactions, opts)
		if err != nil {
			return reporting.Document{}, nil, err
		}
		linked, err := reporting.LinkedInteractions(c, coll.Interactions)
		return doc, linked, err
	case kindInteraction:
		i, err := source.Find(coll.Interactions, req.Name, source.InteractionKey)
		if err != nil {
			return reporting.Document{}, nil, fmt.Errorf("interaction %w", err)
		}
		doc, err := reporting.InteractionReport(i, coll.Companies, opts)
		return doc, []schemas.Interaction{i}, err
	default:
		return reporting.Document{}, nil, fmt.Errorf("unknown report %q", req.Kind)
	}
}

// writePackage renders doc and zips it with the downloaded artifacts.
func writePackage(ctx context.Context, logger *zap.Logger, cfg config.Interface, p provider, renderer reporting.Renderer,
	doc reporting.Document, req reportRequest, artifacts []schemas.Interaction) (err error) {
	content, err := renderer.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to render %q: %w", doc.Title, err)
	}
	fetcher, err := p.Fetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize downloader: %w", err)
	}

	path, err := homedir.Expand(req.Package)
	if err != nil {
		return err
	}
	w, err := reporting.OpenOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	name := reporting.FileName(doc.Title, renderer.Extension())
	missing, err := archive.BuildPackage(ctx, w, archive.NamedFile{Name: name, Content: content}, artifacts, fetcher, logger)
	if err != nil {
		if path != "stdout" {
			_ = os.Remove(path)
		}
		return fmt.Errorf("failed to build package: %w", err)
	}
	if len(missing) > 0 {
		logger.Warn("Package is missing artifacts", zap.String("interactions", strings.Join(missing, ", ")))
	}
	logger.Info("Package successfully written to file", zap.String("path", path))
	return nil
}
