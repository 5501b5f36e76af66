package reporting_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/reporting"
)

// decode builds fixtures from JSON so the wire-level sentinels are exercised too.
func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func blocksOf[T reporting.Block](doc reporting.Document) []T {
	var out []T
	var walk func([]reporting.Block)
	walk = func(blocks []reporting.Block) {
		for _, b := range blocks {
			if v, ok := b.(T); ok {
				out = append(out, v)
			}
			if c, ok := b.(reporting.CollapsibleSection); ok {
				walk(c.Body)
			}
		}
	}
	walk(doc.Blocks)
	return out
}

func renderMarkdown(t *testing.T, doc reporting.Document) string {
	t.Helper()
	out, err := reporting.MarkdownRenderer{}.Render(doc)
	require.NoError(t, err)
	return string(out)
}

func fixtureCompanies(t *testing.T) []schemas.Company {
	return decode[[]schemas.Company](t, `[
		{
			"id": 1, "name": "Acme, Inc.", "company_type": "Public", "role": "Owner", "region": "AMER",
			"latitude": 37.77, "longitude": -122.41, "stock_symbol": "ACME", "cik": 123456,
			"linked_interactions": {"Acme Q1 Call": "guid-1", "Acme Product Brief": "guid-2"},
			"comparison": {
				"2": {"name": "Beta Co", "role": "Competitor", "similarity": 0.91},
				"3": {"name": "Gamma LLC", "role": "Competitor", "similarity": 0.42}
			}
		},
		{
			"id": "2", "name": "Beta Co", "company_type": "Private", "role": "Competitor", "region": "EMEA",
			"latitude": "Unknown", "longitude": 12.5, "stock_symbol": "Unknown",
			"linked_interactions": {}
		}
	]`)
}

func fixtureInteractions(t *testing.T) []schemas.Interaction {
	return decode[[]schemas.Interaction](t, `[
		{
			"id": 10, "name": "Acme Q1 Call", "guid": "guid-1", "interaction_type": "Meeting",
			"date": "20240301", "time": "1405", "url": "s3://acme-bucket/q1-call.pdf",
			"abstract": "<p>Acme discussed <b>pricing</b> and roadmap.</p>",
			"topics": {"pricing": 5, "roadmap": 3, "hiring": 1}
		},
		{
			"id": 11, "name": "Acme Product Brief", "guid": "guid-2", "interaction_type": "Document",
			"date": "20240115", "url": "https://example.com/brief.pdf",
			"abstract": "A brief on the new product line.",
			"topics": {"pricing": 2, "product": 4}
		}
	]`)
}
