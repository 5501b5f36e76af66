package reporting

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/insights"
)

const (
	// NotAnalyzedNotice is the whole insight section of a study that has not been
	// analyzed yet.
	NotAnalyzedNotice = "This study has not been analyzed yet. Insights will appear here once analysis completes."
	// NoInsightsNotice is shown for an analyzed study without insight data.
	NoInsightsNotice = "No insights are available for this study."
)

// StudyReport assembles the detail report of one study. An uncaffeinated study
// gets a fixed notice in place of insights; a caffeinated one lists the top
// insights per company and source interaction.
func StudyReport(study schemas.Study, companies []schemas.Company, interactions []schemas.Interaction, opts Options) (Document, error) {
	cIdx := indexCompanies(companies)
	iIdx := indexInteractions(interactions)

	var b builder
	b.heading(1, study.Name)
	if study.Description != "" {
		b.paragraph(study.Description)
	}
	b.table([]string{"Property", "Value"}, [][]Cell{
		{TextCell("Related Project"), TextCell(valueOr(study.Project, "None"))},
		{TextCell("Companies"), TextCell(strconv.Itoa(study.CompanyCount()))},
	})

	b.heading(2, "Insights")
	if study.Status != schemas.StudyCaffeinated {
		b.paragraph(NotAnalyzedNotice)
		return b.document(study.Name), nil
	}

	top, err := insights.ForStudy(study, opts.TopInsights)
	switch {
	case errors.Is(err, schemas.ErrNoInsights):
		b.paragraph(NoInsightsNotice)
	case err != nil:
		return Document{}, fmt.Errorf("study report: %w", err)
	default:
		for _, company := range studyCompanyOrder(study, top) {
			groups := top[company]
			if len(groups) == 0 {
				continue
			}
			b.heading(3, cIdx.name(company))
			for _, g := range groups {
				title := g.Interaction
				if i, ok := iIdx[g.Interaction]; ok {
					title = i.Name
				}
				b.heading(4, title)
				for _, s := range g.Insights {
					b.add(List{Items: []string{
						s.Insight,
						"Type: " + valueOr(s.Type, "Unspecified"),
						"Count: " + strconv.Itoa(s.Count),
						"Average Similarity: " + formatSimilarity(s.AvgSimilarityScore),
					}})
					if s.Excerpts != "" {
						b.add(CollapsibleSection{Title: "Excerpts", Body: []Block{Paragraph{Text: s.Excerpts}}})
					}
				}
			}
		}
	}

	b.add(HorizontalRule{})
	b.paragraph(fmt.Sprintf("Created: %s | Modified: %s",
		valueOr(study.CreationDate, "Unknown"), valueOr(study.ModificationDate, "Unknown")))
	return b.document(study.Name), nil
}

// studyCompanyOrder lists companies in the order of the latest snapshot, followed
// by any other company with insights in sorted order.
func studyCompanyOrder(study schemas.Study, top map[string][]insights.InteractionInsights) []string {
	seen := make(map[string]bool, len(top))
	order := make([]string, 0, len(top))
	if latest, ok := study.LatestCompanies(); ok {
		for _, id := range latest.IncludedCompanies {
			key := string(id)
			if _, has := top[key]; has && !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}
	rest := make([]string, 0)
	for key := range top {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
