package reporting

import (
	"strconv"

	"github.com/mediumroast/mrcli/api/schemas"
)

// StudiesHeader is the header of the study directory table.
var StudiesHeader = []string{"Study Name", "Related Project", "Companies", "Analyzed"}

const (
	// StudiesDir is where study reports live, relative to the repository root.
	StudiesDir = "Studies"
	// CompaniesDir is where company reports live, relative to the repository root.
	CompaniesDir = "Companies"

	studiesIntro = "This repository collects competitive and market intelligence. " +
		"Companies are described in the Companies directory; studies compare groups of companies and surface the insights found in their interactions."
	// NoStudiesNotice replaces the study table when there are no studies.
	NoStudiesNotice = "There are no studies in this repository yet. Studies appear here once they are created."
)

// StudiesReport assembles the root README: an introduction and, when studies
// exist, a table of every study. Without studies a fixed notice replaces the table.
func StudiesReport(studies []schemas.Study, opts Options) Document {
	var b builder
	b.heading(1, valueOr(opts.Title, DefaultOptions().Title))
	b.paragraph(studiesIntro)
	b.add(Link{Text: "Browse all companies", Target: "./" + CompaniesDir + "/README.md"})
	b.heading(2, "Studies")

	if len(studies) == 0 {
		b.paragraph(NoStudiesNotice)
		return b.document("Studies")
	}

	rows := make([][]Cell, 0, len(studies))
	for _, s := range studies {
		analyzed := "No"
		if s.Status == schemas.StudyCaffeinated {
			analyzed = "Yes"
		}
		rows = append(rows, []Cell{
			LinkCell(s.Name, "./"+StudiesDir+"/"+FileName(s.Name, MarkdownExt)),
			TextCell(s.Project),
			TextCell(strconv.Itoa(s.CompanyCount())),
			TextCell(analyzed),
		})
	}
	b.table(StudiesHeader, rows)
	return b.document("Studies")
}
