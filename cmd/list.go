// File: cmd/list.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/observability"
	"github.com/mediumroast/mrcli/internal/source"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// listFilter narrows a listing.
type listFilter struct {
	Name   string
	ID     string
	AsJSON bool
}

// newListCmd creates the `list` command and its per-collection subcommands.
func newListCmd(p provider) *cobra.Command {
	var filter listFilter

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List companies, interactions or studies",
	}
	listCmd.PersistentFlags().StringVar(&filter.Name, "name", "", "only list the entity with this name")
	listCmd.PersistentFlags().StringVar(&filter.ID, "id", "", "only list the entity with this id")
	listCmd.PersistentFlags().BoolVar(&filter.AsJSON, "json", false, "print the entities as JSON")

	for _, kind := range []string{kindCompanies, kindInteractions, kindStudies} {
		listCmd.AddCommand(&cobra.Command{
			Use:   kind,
			Short: "List " + kind,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				cfg, err := getConfigFromContext(ctx)
				if err != nil {
					return err
				}
				logger := observability.GetLogger()
				src, cleanup, err := p.Source(ctx, cfg, logger)
				if err != nil {
					return fmt.Errorf("failed to initialize source: %w", err)
				}
				defer cleanup()
				return runList(ctx, cmd.OutOrStdout(), src, kind, filter)
			},
		})
	}
	return listCmd
}

const (
	kindCompanies    = "companies"
	kindInteractions = "interactions"
	kindStudies      = "studies"
)

// runList loads one collection, filters it and prints it as a table or JSON.
func runList(ctx context.Context, out io.Writer, src schemas.EntitySource, kind string, f listFilter) error {
	switch kind {
	case kindCompanies:
		items, err := src.Companies(ctx)
		if err != nil {
			return err
		}
		return printEntities(out, items, f, source.CompanyKey,
			[]string{"ID", "Name", "Role", "Region", "Industry", "Interactions"},
			func(c schemas.Company) []string {
				return []string{c.ID.String(), c.Name, c.Role, c.Region, c.Industry, strconv.Itoa(len(c.LinkedInteractions))}
			})
	case kindInteractions:
		items, err := src.Interactions(ctx)
		if err != nil {
			return err
		}
		return printEntities(out, items, f, source.InteractionKey,
			[]string{"ID", "Name", "Type", "Date", "Companies"},
			func(i schemas.Interaction) []string {
				return []string{i.ID.String(), i.Name, i.InteractionType, i.Date, strings.Join(sortedKeys(i.LinkedCompanies), ", ")}
			})
	case kindStudies:
		items, err := src.Studies(ctx)
		if err != nil {
			return err
		}
		return printEntities(out, items, f, source.StudyKey,
			[]string{"ID", "Name", "Project", "Status", "Companies"},
			func(s schemas.Study) []string {
				return []string{s.ID.String(), s.Name, s.Project, studyStatus(s.Status), strconv.Itoa(s.CompanyCount())}
			})
	default:
		return fmt.Errorf("unknown collection %q", kind)
	}
}

func printEntities[T any](out io.Writer, items []T, f listFilter, key source.KeyFunc[T], headers []string, row func(T) []string) error {
	items, err := source.Filter(items, f.Name, f.ID, key)
	if err != nil {
		return err
	}
	if f.AsJSON {
		if items == nil {
			items = []T{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize entities to JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, it := range items {
		t.Row(row(it)...)
	}
	_, err = fmt.Fprintln(out, t.String())
	return err
}

func studyStatus(s schemas.StudyStatus) string {
	if s == schemas.StudyCaffeinated {
		return "caffeinated"
	}
	return "uncaffeinated"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
