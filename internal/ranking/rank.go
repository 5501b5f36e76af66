// Package ranking classifies named scores into High, Medium and Low bands using
// box-plot quartiles.
package ranking

import (
	"math"
	"sort"
)

// Band is the classification assigned to a score.
type Band string

const (
	High   Band = "High"
	Medium Band = "Medium"
	Low    Band = "Low"
)

// Ranked is a score together with its band.
type Ranked struct {
	Score float64 `json:"score"`
	Rank  Band    `json:"rank"`
}

// FiveNumberSummary is the box-plot summary of a set of values.
type FiveNumberSummary struct {
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Summarize computes the five-number summary of values. Quartiles are found by
// linear interpolation between the closest ranks of the sorted values, at position
// p*(n-1). The input slice is not modified. Empty input returns the zero summary
// and false.
func Summarize(values []float64) (FiveNumberSummary, bool) {
	if len(values) == 0 {
		return FiveNumberSummary{}, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return FiveNumberSummary{
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}, true
}

// quantile expects sorted, non-empty input.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Classify bands a single score against a summary.
func (s FiveNumberSummary) Classify(score float64) Band {
	switch {
	case score > s.Q3:
		return High
	case score < s.Q1:
		return Low
	default:
		return Medium
	}
}

// Rank bands every score: above Q3 is High, below Q1 is Low, anything else Medium.
// An empty mapping yields an empty result.
func Rank(scores map[string]float64) map[string]Ranked {
	out := make(map[string]Ranked, len(scores))
	if len(scores) == 0 {
		return out
	}
	values := make([]float64, 0, len(scores))
	for _, v := range scores {
		values = append(values, v)
	}
	summary, _ := Summarize(values)
	for name, v := range scores {
		out[name] = Ranked{Score: v, Rank: summary.Classify(v)}
	}
	return out
}

// Entry is one row of a ranked table.
type Entry struct {
	Name string
	Ranked
}

// Sorted orders ranked scores by score descending, then by name.
func Sorted(ranked map[string]Ranked) []Entry {
	entries := make([]Entry, 0, len(ranked))
	for name, r := range ranked {
		entries = append(entries, Entry{Name: name, Ranked: r})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}
