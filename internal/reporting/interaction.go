package reporting

import (
	"fmt"
	"sort"

	"github.com/mediumroast/mrcli/api/schemas"
)

// InteractionCompaniesHeader is the header of the linked companies table.
var InteractionCompaniesHeader = []string{"Company Name", "Company Role", "Company Region"}

// InteractionReport assembles the standalone report of one interaction: its
// metadata, abstract, ranked topics and the companies it is linked to. Companies
// are linked either from the interaction's own linked_companies or from a
// company's linked_interactions.
func InteractionReport(interaction schemas.Interaction, companies []schemas.Company, opts Options) (Document, error) {
	related, err := relatedCompanies(interaction, companies)
	if err != nil {
		return Document{}, err
	}

	var b builder
	b.heading(1, interaction.Name)

	b.heading(2, "Metadata")
	rows := [][]Cell{
		{TextCell("Interaction Type"), TextCell(valueOr(interaction.InteractionType, "Unknown"))},
		{TextCell("Date"), TextCell(valueOr(formatWhen(interaction), "Unknown"))},
	}
	if interaction.GUID != "" {
		rows = append(rows, []Cell{TextCell("GUID"), TextCell(interaction.GUID)})
	}
	if interaction.URL != "" {
		rows = append(rows, []Cell{TextCell("Source"), LinkCell(interaction.URL, interaction.URL)})
	}
	b.table([]string{"Property", "Value"}, rows)

	b.heading(2, "Abstract")
	b.paragraph(valueOr(Truncate(PlainText(interaction.Abstract), opts.AbstractLength), "No abstract is available."))

	b.heading(2, "Topics")
	b.table(TopicsHeader, topicRows(interaction.Topics))

	b.heading(2, "Companies")
	companyRows := make([][]Cell, 0, len(related))
	for _, c := range related {
		companyRows = append(companyRows, []Cell{
			LinkCell(c.Name, "./"+FileName(c.Name, MarkdownExt)),
			TextCell(valueOr(c.Role, "Unknown")),
			TextCell(valueOr(c.Region, "Unknown")),
		})
	}
	b.table(InteractionCompaniesHeader, companyRows)
	return b.document(interaction.Name), nil
}

func relatedCompanies(interaction schemas.Interaction, companies []schemas.Company) ([]schemas.Company, error) {
	idx := indexCompanies(companies)
	seen := make(map[string]bool)
	var out []schemas.Company
	for key := range interaction.LinkedCompanies {
		c, ok := idx[key]
		if !ok {
			return nil, fmt.Errorf("interaction report for %q: company %q: %w", interaction.Name, key, schemas.ErrNotFound)
		}
		if !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c)
		}
	}
	for _, c := range companies {
		if seen[c.Name] {
			continue
		}
		for key := range c.LinkedInteractions {
			if interaction.Matches(key) {
				seen[c.Name] = true
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}
