// Package insights selects and ranks the most relevant insights of a study.
package insights

import (
	"fmt"
	"sort"

	"github.com/mediumroast/mrcli/api/schemas"
)

// DefaultTopCount is how many source interactions are kept per company.
const DefaultTopCount = 5

// InteractionInsights is the ranked insight list of one source interaction.
type InteractionInsights struct {
	Interaction string
	// Frequency is the number of insight records that reference the interaction.
	Frequency int
	Insights  []schemas.InsightSummary
}

// Top selects, for every company, the topCount source interactions referenced by
// the most insight records, and ranks each interaction's insights by count.
//
// Interactions are returned in non-increasing frequency order; equal frequencies
// keep the order in which the interactions were first seen. A topCount of zero or
// less uses DefaultTopCount.
func Top(perCompany map[string][]schemas.InsightRecord, topCount int) (map[string][]InteractionInsights, error) {
	if topCount <= 0 {
		topCount = DefaultTopCount
	}
	out := make(map[string][]InteractionInsights, len(perCompany))
	for company, records := range perCompany {
		ranked, err := topForCompany(records, topCount)
		if err != nil {
			return nil, fmt.Errorf("ranking insights for company %q: %w", company, err)
		}
		out[company] = ranked
	}
	return out, nil
}

func topForCompany(records []schemas.InsightRecord, topCount int) ([]InteractionInsights, error) {
	order := make([]string, 0)
	freq := make(map[string]int)
	for i, r := range records {
		if r.SourceInteraction == "" {
			return nil, fmt.Errorf("%w: insight record %d has no source_interaction", schemas.ErrMalformedInput, i)
		}
		if r.Targets == nil {
			return nil, fmt.Errorf("%w: insight record %d (%s) has no targets", schemas.ErrMalformedInput, i, r.SourceInteraction)
		}
		if _, seen := freq[r.SourceInteraction]; !seen {
			order = append(order, r.SourceInteraction)
		}
		freq[r.SourceInteraction]++
	}

	// Stable sort keeps first-seen order between equal frequencies.
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > topCount {
		order = order[:topCount]
	}

	groups := make(map[string]*InteractionInsights, len(order))
	out := make([]InteractionInsights, len(order))
	for i, id := range order {
		out[i] = InteractionInsights{Interaction: id, Frequency: freq[id]}
		groups[id] = &out[i]
	}
	for _, r := range records {
		g, ok := groups[r.SourceInteraction]
		if !ok {
			continue
		}
		g.Insights = append(g.Insights, schemas.InsightSummary{
			Insight:            r.Insight,
			Type:               r.Type,
			Count:              r.Count,
			AvgSimilarityScore: AverageSimilarity(r.Targets),
			Excerpts:           r.Excerpts,
		})
	}
	for i := range out {
		ins := out[i].Insights
		sort.SliceStable(ins, func(a, b int) bool { return ins[a].Count > ins[b].Count })
	}
	return out, nil
}

// AverageSimilarity is the arithmetic mean of the target similarity scores, or 0
// when there are no targets.
func AverageSimilarity(targets map[string]float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	// Sum in key order so the result does not depend on map iteration.
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sum float64
	for _, k := range keys {
		sum += targets[k]
	}
	return sum / float64(len(targets))
}

// ForStudy ranks the insights of the study's most recent snapshot. It returns
// ErrNoInsights when the study carries no company or insight snapshots.
func ForStudy(study schemas.Study, topCount int) (map[string][]InteractionInsights, error) {
	if _, ok := study.LatestCompanies(); !ok {
		return nil, fmt.Errorf("study %q: %w", study.Name, schemas.ErrNoInsights)
	}
	latest, ok := study.LatestInsights()
	if !ok {
		return nil, fmt.Errorf("study %q: %w", study.Name, schemas.ErrNoInsights)
	}
	top, err := Top(latest.Insights, topCount)
	if err != nil {
		return nil, fmt.Errorf("study %q: %w", study.Name, err)
	}
	return top, nil
}
