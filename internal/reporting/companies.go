package reporting

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mediumroast/mrcli/api/schemas"
)

// CompaniesHeader is the header of the company directory table.
var CompaniesHeader = []string{"Company Name", "Company Type", "Company Role", "Company Region", "Total Interactions"}

const (
	companiesIntro = "The following companies are tracked in this repository. " +
		"Each name links to a report with the company's firmographics, topics, comparisons and interactions."
	noLocationsNotice = "No company has a known location yet, so no map is available."
)

// CompaniesReport assembles the company directory: an introduction, a table of
// every company and a map of the companies whose location is known.
func CompaniesReport(companies []schemas.Company, opts Options) (Document, error) {
	var b builder
	b.heading(1, "Companies")
	b.paragraph(companiesIntro)

	rows := make([][]Cell, 0, len(companies))
	for _, c := range companies {
		total, err := c.TotalInteractions()
		if err != nil {
			return Document{}, fmt.Errorf("companies report: %w", err)
		}
		rows = append(rows, []Cell{
			LinkCell(c.Name, "./"+FileName(c.Name, MarkdownExt)),
			TextCell(c.CompanyType),
			TextCell(c.Role),
			TextCell(c.Region),
			TextCell(strconv.Itoa(total)),
		})
	}
	b.heading(2, "Company Directory")
	b.table(CompaniesHeader, rows)

	b.heading(2, "Company Locations")
	located := locatedCompanies(companies)
	if len(located) == 0 {
		b.paragraph(noLocationsNotice)
	} else {
		geo, err := companyGeoJSON(located)
		if err != nil {
			return Document{}, fmt.Errorf("companies report: building map: %w", err)
		}
		b.add(CodeBlock{Language: "geojson", Text: geo})
	}
	return b.document("Companies"), nil
}

func locatedCompanies(companies []schemas.Company) []schemas.Company {
	out := make([]schemas.Company, 0, len(companies))
	for _, c := range companies {
		if c.HasLocation() {
			out = append(out, c)
		}
	}
	return out
}

type geoFeatureCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

type geoFeature struct {
	Type       string            `json:"type"`
	Geometry   geoPoint          `json:"geometry"`
	Properties map[string]string `json:"properties"`
}

type geoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// companyGeoJSON renders located companies as a GeoJSON feature collection.
// GeoJSON orders coordinates longitude first.
func companyGeoJSON(companies []schemas.Company) (string, error) {
	fc := geoFeatureCollection{Type: "FeatureCollection", Features: make([]geoFeature, 0, len(companies))}
	for _, c := range companies {
		fc.Features = append(fc.Features, geoFeature{
			Type: "Feature",
			Geometry: geoPoint{
				Type:        "Point",
				Coordinates: [2]float64{c.Longitude.Value, c.Latitude.Value},
			},
			Properties: map[string]string{
				"name":    c.Name,
				"role":    c.Role,
				"region":  c.Region,
				"address": c.Address(),
			},
		})
	}
	out, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
