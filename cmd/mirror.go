// File: cmd/mirror.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/internal/config"
	"github.com/mediumroast/mrcli/internal/observability"
	"github.com/mediumroast/mrcli/internal/source"
)

// newMirrorCmd creates and configures the `mirror` command.
func newMirrorCmd(p provider) *cobra.Command {
	var skipMigrate bool

	mirrorCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Copy the configured collections into PostgreSQL",
		Long: `Loads companies, interactions and studies from the configured source and
replaces the contents of the database tables with them in one transaction.
Set source.type to postgres afterwards to render reports from the copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runMirror(ctx, observability.GetLogger(), cfg, p, !skipMigrate, cmd.OutOrStdout())
		},
	}
	mirrorCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not create the tables before copying.")
	return mirrorCmd
}

// runMirror contains the core, testable logic of the mirror command.
func runMirror(ctx context.Context, logger *zap.Logger, cfg config.Interface, p provider, migrate bool, out io.Writer) error {
	if cfg.Source().Type == config.SourcePostgres {
		return errors.New("mirror needs a source other than postgres")
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

	db, closeDB, err := p.Database(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer closeDB()

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}
	if err := db.Replace(ctx, coll); err != nil {
		return err
	}
	fmt.Fprintf(out, "Mirrored %d companies, %d interactions and %d studies\n",
		len(coll.Companies), len(coll.Interactions), len(coll.Studies))
	return nil
}
