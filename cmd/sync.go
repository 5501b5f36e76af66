// File: cmd/sync.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/config"
	"github.com/mediumroast/mrcli/internal/observability"
	"github.com/mediumroast/mrcli/internal/publish"
)

// newSyncCmd creates and configures the `sync` command.
func newSyncCmd(p provider) *cobra.Command {
	var dryRun bool

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Regenerate the Markdown report tree and reconcile it with the report store",
		Long: `Builds every Companies and Studies report plus the top-level README from the
current collections, deletes reports whose entity no longer exists, and
creates or updates the rest. Individual write failures do not stop the run;
they are summarised at the end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runSync(ctx, observability.GetLogger(), cfg, p, dryRun, cmd.OutOrStdout())
		},
	}
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the changes without writing anything.")
	syncCmd.Flags().String("target", "", "Override sync.target (github, git, dir).")
	syncCmd.Flags().Int("concurrency", 0, "Override sync.concurrency.")
	return syncCmd
}

// runSync contains the core, testable logic of the sync command.
func runSync(ctx context.Context, logger *zap.Logger, cfg config.Interface, p provider, dryRun bool, out io.Writer) error {
	src, cleanup, err := p.Source(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer cleanup()

	store, err := p.Store(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}

	pub := publish.NewPublisher(src, store, publish.Settings{
		Reports:       cfg.Reports().Options(),
		Concurrency:   cfg.Sync().Concurrency,
		CommitMessage: cfg.Sync().CommitMessage,
	}, logger)

	if dryRun {
		plans, err := pub.Plan(ctx)
		if err != nil {
			return err
		}
		printPlans(out, plans)
		return nil
	}

	report, err := pub.Sync(ctx)
	if report != nil {
		printSyncReport(out, report)
	}
	var batch *schemas.BatchError
	if errors.As(err, &batch) {
		for _, path := range batch.FailedPaths() {
			fmt.Fprintf(out, "  failed  %s: %v\n", path, batch.Failed[path])
		}
	}
	return err
}

func printPlans(out io.Writer, plans publish.Plans) {
	dirs := make([]string, 0, len(plans))
	for dir := range plans {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		plan := plans[dir]
		label := dir
		if label == "" {
			label = "/"
		}
		fmt.Fprintf(out, "%s: %d to delete, %d to create, %d to update\n",
			label, len(plan.Delete), len(plan.Create), len(plan.Update))
		for _, f := range plan.Delete {
			fmt.Fprintf(out, "  delete  %s\n", f.Path)
		}
		for _, f := range plan.Create {
			fmt.Fprintf(out, "  create  %s\n", f.Path)
		}
		for _, u := range plan.Update {
			fmt.Fprintf(out, "  update  %s\n", u.File.Path)
		}
	}
}

func printSyncReport(out io.Writer, r *publish.SyncReport) {
	fmt.Fprintf(out, "Sync %s finished in %s\n", r.RunID, r.Finished.Sub(r.Started).Round(time.Millisecond))
	if r.Companies != nil {
		fmt.Fprintf(out, "Companies: %d deleted, %d written, %d failed\n",
			len(r.Companies.Deleted), len(r.Companies.Written), len(r.Companies.Failed))
	}
	if r.Studies != nil {
		fmt.Fprintf(out, "Studies: %d deleted, %d written, %d failed\n",
			len(r.Studies.Deleted), len(r.Studies.Written), len(r.Studies.Failed))
	}
	if r.RootWritten {
		fmt.Fprintln(out, "README.md written")
	}
}
