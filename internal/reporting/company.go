package reporting

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/ranking"
)

var (
	// TopicsHeader is the header of ranked topic tables.
	TopicsHeader = []string{"Topic", "Score", "Rank"}
	// ComparisonHeader is the header of company comparison tables.
	ComparisonHeader = []string{"Company", "Role", "Similarity", "Rank"}
)

// CompanyReport assembles the standalone report of one company: firmographics,
// ranked topics, similarity comparisons and a reference entry per linked
// interaction. Every linked interaction must exist in interactions.
func CompanyReport(company schemas.Company, interactions []schemas.Interaction, opts Options) (Document, error) {
	total, err := company.TotalInteractions()
	if err != nil {
		return Document{}, fmt.Errorf("company report: %w", err)
	}
	linked, err := linkedInteractions(company, indexInteractions(interactions))
	if err != nil {
		return Document{}, err
	}

	var b builder
	b.heading(1, company.Name)
	if company.Description != "" {
		b.paragraph(company.Description)
	}

	b.heading(2, "Firmographics")
	b.table([]string{"Property", "Value"}, firmographicRows(company, total))

	b.heading(2, "Topics")
	topics := company.Topics
	if len(topics) == 0 {
		topics = aggregateTopics(linked)
	}
	b.table(TopicsHeader, topicRows(topics))

	b.heading(2, "Comparisons")
	rows, closest := comparisonRows(company.Comparison)
	if closest != nil {
		b.paragraph(fmt.Sprintf("%s is the closest company to %s, with a similarity score of %s.",
			closest.Name, company.Name, formatSimilarity(closest.Score)))
	}
	b.table(ComparisonHeader, rows)

	b.heading(2, "References")
	if len(linked) == 0 {
		b.paragraph(fmt.Sprintf("%s has no interactions yet.", company.Name))
	}
	for _, i := range linked {
		referenceBlocks(&b, i, opts)
	}
	return b.document(company.Name), nil
}

func firmographicRows(c schemas.Company, total int) [][]Cell {
	rows := [][]Cell{
		{TextCell("Company Type"), TextCell(valueOr(c.CompanyType, "Unknown"))},
		{TextCell("Role"), TextCell(valueOr(c.Role, "Unknown"))},
		{TextCell("Industry"), TextCell(valueOr(c.Industry, "Unknown"))},
		{TextCell("Region"), TextCell(valueOr(c.Region, "Unknown"))},
	}
	if addr := c.Address(); addr != "" {
		rows = append(rows, []Cell{TextCell("Address"), TextCell(addr)})
	}
	if c.URL != "" {
		rows = append(rows, []Cell{TextCell("Website"), LinkCell(c.URL, c.URL)})
	}
	for _, id := range []struct {
		label string
		value schemas.Identifier
	}{
		{"Stock Symbol", c.StockSymbol},
		{"Exchange", c.Exchange},
		{"CIK", c.CIK},
	} {
		if id.value.Known {
			rows = append(rows, []Cell{TextCell(id.label), TextCell(id.value.Value)})
		}
	}
	rows = append(rows, []Cell{TextCell("Total Interactions"), TextCell(strconv.Itoa(total))})
	return rows
}

// LinkedInteractions resolves the interactions linked to c, ordered by interaction
// name as the references section lists them. A link missing from interactions is
// ErrNotFound.
func LinkedInteractions(c schemas.Company, interactions []schemas.Interaction) ([]schemas.Interaction, error) {
	return linkedInteractions(c, indexInteractions(interactions))
}

func linkedInteractions(c schemas.Company, idx interactionIndex) ([]schemas.Interaction, error) {
	keys := make([]string, 0, len(c.LinkedInteractions))
	for k := range c.LinkedInteractions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]schemas.Interaction, 0, len(keys))
	for _, k := range keys {
		i, ok := idx[k]
		if !ok {
			return nil, fmt.Errorf("company report for %q: interaction %q: %w", c.Name, k, schemas.ErrNotFound)
		}
		out = append(out, i)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// aggregateTopics sums topic weights across interactions.
func aggregateTopics(interactions []schemas.Interaction) map[string]float64 {
	out := make(map[string]float64)
	for _, i := range interactions {
		for k, v := range i.Topics {
			out[k] += v
		}
	}
	return out
}

func topicRows(topics map[string]float64) [][]Cell {
	entries := ranking.Sorted(ranking.Rank(topics))
	rows := make([][]Cell, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []Cell{TextCell(e.Name), TextCell(formatWeight(e.Score)), TextCell(string(e.Rank))})
	}
	return rows
}

// comparisonRows ranks the raw comparison input by similarity and returns the
// table rows with the most similar company, if any.
func comparisonRows(comparisons map[string]schemas.ComparisonEntry) ([][]Cell, *ranking.Entry) {
	// Ranked by comparison key; two entries may share a display name.
	scores := make(map[string]float64, len(comparisons))
	for key, c := range comparisons {
		scores[key] = c.Similarity
	}
	display := func(key string) string { return valueOr(comparisons[key].Name, key) }

	entries := ranking.Sorted(ranking.Rank(scores))
	rows := make([][]Cell, 0, len(entries))
	for _, e := range entries {
		name := display(e.Name)
		rows = append(rows, []Cell{
			LinkCell(name, "./"+FileName(name, MarkdownExt)),
			TextCell(valueOr(comparisons[e.Name].Role, "Unknown")),
			TextCell(formatSimilarity(e.Score)),
			TextCell(string(e.Rank)),
		})
	}
	if len(entries) == 0 {
		return rows, nil
	}
	closest := entries[0]
	closest.Name = display(closest.Name)
	return rows, &closest
}

func referenceBlocks(b *builder, i schemas.Interaction, opts Options) {
	b.heading(3, i.Name)
	if abstract := Truncate(PlainText(i.Abstract), opts.AbstractLength); abstract != "" {
		b.paragraph(abstract)
	}
	if i.URL != "" {
		b.add(Link{Text: "Permalink", Target: i.URL})
	}
	b.paragraph(fmt.Sprintf("Date: %s | Type: %s", valueOr(formatWhen(i), "Unknown"), valueOr(i.InteractionType, "Unknown")))
}
