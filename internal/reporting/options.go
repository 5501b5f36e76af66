package reporting

import (
	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/insights"
)

// Options tunes the assemblers. It is passed by value; assemblers never read
// global configuration.
type Options struct {
	// Title heads the root README.
	Title string
	// TopInsights is how many source interactions per company a study report shows.
	TopInsights int
	// AbstractLength caps interaction abstracts, in runes.
	AbstractLength int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Title:          "Mediumroast",
		TopInsights:    insights.DefaultTopCount,
		AbstractLength: 400,
	}
}

// companyIndex resolves company references that may be ids or names.
type companyIndex map[string]schemas.Company

func indexCompanies(companies []schemas.Company) companyIndex {
	idx := make(companyIndex, len(companies)*2)
	for _, c := range companies {
		idx[c.Name] = c
		if c.ID != "" {
			idx[string(c.ID)] = c
		}
	}
	return idx
}

func (idx companyIndex) name(key string) string {
	if c, ok := idx[key]; ok {
		return c.Name
	}
	return key
}

// interactionIndex resolves interaction references by name, id, or GUID.
type interactionIndex map[string]schemas.Interaction

func indexInteractions(interactions []schemas.Interaction) interactionIndex {
	idx := make(interactionIndex, len(interactions)*3)
	for _, i := range interactions {
		for _, k := range []string{i.Name, string(i.ID), i.GUID} {
			if k != "" {
				idx[k] = i
			}
		}
	}
	return idx
}
