package schemas

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// -- Company --

// Relation is the metadata attached to a link between two entities. Upstream data
// stores anything from a GUID string to a small object here, so it is kept raw.
type Relation = json.RawMessage

// ComparisonEntry describes how similar another company is to the owning company.
type ComparisonEntry struct {
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Similarity float64 `json:"similarity"`
}

// Company is a tracked organization.
type Company struct {
	ID                 ID                         `json:"id"`
	Name               string                     `json:"name"`
	Description        string                     `json:"description"`
	CompanyType        string                     `json:"company_type"`
	Role               string                     `json:"role"`
	Industry           string                     `json:"industry"`
	Region             string                     `json:"region"`
	StreetAddress      string                     `json:"street_address"`
	City               string                     `json:"city"`
	StateProvince      string                     `json:"state_province"`
	ZipPostal          string                     `json:"zip_postal"`
	Country            string                     `json:"country"`
	Latitude           Coordinate                 `json:"latitude"`
	Longitude          Coordinate                 `json:"longitude"`
	URL                string                     `json:"url"`
	StockSymbol        Identifier                 `json:"stock_symbol"`
	Exchange           Identifier                 `json:"exchange"`
	CIK                Identifier                 `json:"cik"`
	LinkedInteractions map[string]Relation        `json:"linked_interactions"`
	LinkedStudies      map[string]Relation        `json:"linked_studies"`
	Topics             map[string]float64         `json:"topics,omitempty"`
	Comparison         map[string]ComparisonEntry `json:"comparison,omitempty"`
	CreationDate       string                     `json:"creation_date,omitempty"`
	ModificationDate   string                     `json:"modification_date,omitempty"`
}

// TotalInteractions is the number of linked interactions. A company record that
// never carried the linked_interactions field is malformed.
func (c Company) TotalInteractions() (int, error) {
	if c.LinkedInteractions == nil {
		return 0, fmt.Errorf("%w: company %q has no linked_interactions", ErrMalformedInput, c.Name)
	}
	return len(c.LinkedInteractions), nil
}

// HasLocation reports whether both coordinates are known.
func (c Company) HasLocation() bool {
	return c.Latitude.Known && c.Longitude.Known && math.Abs(c.Latitude.Value) <= 90
}

// Address joins the non-empty address fields.
func (c Company) Address() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{c.StreetAddress, c.City, c.StateProvince, c.ZipPostal, c.Country} {
		if p = strings.TrimSpace(p); p != "" && !strings.EqualFold(p, unknownSentinel) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// -- Interaction --

// Interaction is a piece of collected source material (a document, a call, a
// meeting) associated with one or more companies.
type Interaction struct {
	ID               ID                  `json:"id"`
	Name             string              `json:"name"`
	GUID             string              `json:"guid"`
	InteractionType  string              `json:"interaction_type"`
	Date             string              `json:"date"`
	Time             string              `json:"time"`
	Abstract         string              `json:"abstract"`
	URL              string              `json:"url"`
	Topics           map[string]float64  `json:"topics,omitempty"`
	LinkedCompanies  map[string]Relation `json:"linked_companies,omitempty"`
	CreationDate     string              `json:"creation_date,omitempty"`
	ModificationDate string              `json:"modification_date,omitempty"`
}

// When parses the YYYYMMDD date and the optional HHMM time in UTC.
func (i Interaction) When() (time.Time, bool) {
	if i.Date == "" {
		return time.Time{}, false
	}
	layout, value := "20060102", i.Date
	if i.Time != "" {
		layout, value = "200601021504", i.Date+i.Time
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Matches reports whether key refers to this interaction by name, id, or GUID.
func (i Interaction) Matches(key string) bool {
	return key != "" && (key == i.Name || key == string(i.ID) || key == i.GUID)
}

// -- Study --

// InsightRecord is a machine-generated observation tied to one source interaction
// and scored for similarity against target companies.
type InsightRecord struct {
	SourceInteraction string             `json:"source_interaction"`
	Insight           string             `json:"insight"`
	Type              string             `json:"type"`
	Count             int                `json:"count"`
	Excerpts          string             `json:"excerpts"`
	Targets           map[string]float64 `json:"targets"`
}

// Snapshot is a point-in-time key of a study's company or insight data.
type Snapshot struct {
	Key       string
	Timestamp int64
}

// Time converts the snapshot timestamp, treating values above 1e12 as milliseconds.
func (s Snapshot) Time() time.Time {
	if s.Timestamp > 1e12 {
		return time.UnixMilli(s.Timestamp).UTC()
	}
	return time.Unix(s.Timestamp, 0).UTC()
}

// CompanySnapshot is the set of companies included in a study at one point in time.
type CompanySnapshot struct {
	Snapshot
	IncludedCompanies []ID
}

// InsightSnapshot is the per-company insight data of a study at one point in time.
type InsightSnapshot struct {
	Snapshot
	Insights map[string][]InsightRecord
}

// StudyStatus tells whether a study has been analyzed.
type StudyStatus int

const (
	// StudyUncaffeinated marks a study that has not been analyzed yet.
	StudyUncaffeinated StudyStatus = 0
	// StudyCaffeinated marks a study whose insights are available.
	StudyCaffeinated StudyStatus = 1
)

// Study groups companies for a comparative analysis.
type Study struct {
	ID               ID
	Name             string
	Description      string
	Project          string
	Status           StudyStatus
	CreationDate     string
	ModificationDate string
	// Companies and SourceTopics are ordered oldest first.
	Companies    []CompanySnapshot
	SourceTopics []InsightSnapshot
}

type studyWire struct {
	ID               ID                                    `json:"id"`
	Name             string                                `json:"name"`
	Description      string                                `json:"description"`
	Project          string                                `json:"project"`
	Status           StudyStatus                           `json:"status"`
	CreationDate     string                                `json:"creation_date,omitempty"`
	ModificationDate string                                `json:"modification_date,omitempty"`
	Companies        map[string]studyCompaniesWire         `json:"companies,omitempty"`
	SourceTopics     map[string]map[string][]InsightRecord `json:"sourceTopics,omitempty"`
}

type studyCompaniesWire struct {
	IncludedCompanies []ID `json:"included_companies"`
}

// UnmarshalJSON converts the timestamp-keyed maps into chronologically ordered
// snapshots.
func (s *Study) UnmarshalJSON(data []byte) error {
	var w studyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Study{
		ID:               w.ID,
		Name:             w.Name,
		Description:      w.Description,
		Project:          w.Project,
		Status:           w.Status,
		CreationDate:     w.CreationDate,
		ModificationDate: w.ModificationDate,
	}
	seen := make(map[int64]string, len(w.Companies))
	for key, c := range w.Companies {
		snap, err := parseSnapshot(key, seen)
		if err != nil {
			return fmt.Errorf("study %q companies: %w", w.Name, err)
		}
		s.Companies = append(s.Companies, CompanySnapshot{Snapshot: snap, IncludedCompanies: c.IncludedCompanies})
	}
	seen = make(map[int64]string, len(w.SourceTopics))
	for key, t := range w.SourceTopics {
		snap, err := parseSnapshot(key, seen)
		if err != nil {
			return fmt.Errorf("study %q sourceTopics: %w", w.Name, err)
		}
		s.SourceTopics = append(s.SourceTopics, InsightSnapshot{Snapshot: snap, Insights: t})
	}
	sort.Slice(s.Companies, func(i, j int) bool { return s.Companies[i].Timestamp < s.Companies[j].Timestamp })
	sort.Slice(s.SourceTopics, func(i, j int) bool { return s.SourceTopics[i].Timestamp < s.SourceTopics[j].Timestamp })
	return nil
}

// MarshalJSON writes the snapshots back in their timestamp-keyed form.
func (s Study) MarshalJSON() ([]byte, error) {
	w := studyWire{
		ID:               s.ID,
		Name:             s.Name,
		Description:      s.Description,
		Project:          s.Project,
		Status:           s.Status,
		CreationDate:     s.CreationDate,
		ModificationDate: s.ModificationDate,
	}
	if len(s.Companies) > 0 {
		w.Companies = make(map[string]studyCompaniesWire, len(s.Companies))
		for _, c := range s.Companies {
			w.Companies[c.Key] = studyCompaniesWire{IncludedCompanies: c.IncludedCompanies}
		}
	}
	if len(s.SourceTopics) > 0 {
		w.SourceTopics = make(map[string]map[string][]InsightRecord, len(s.SourceTopics))
		for _, t := range s.SourceTopics {
			w.SourceTopics[t.Key] = t.Insights
		}
	}
	return json.Marshal(w)
}

// parseSnapshot parses key and records it in seen. Two keys of one map naming the
// same instant ("1" and "01") would leave the latest snapshot ambiguous.
func parseSnapshot(key string, seen map[int64]string) (Snapshot, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot key %q is not a numeric timestamp", ErrMalformedInput, key)
	}
	if prev, dup := seen[ts]; dup {
		return Snapshot{}, fmt.Errorf("%w: snapshot keys %q and %q name the same timestamp", ErrMalformedInput, prev, key)
	}
	seen[ts] = key
	return Snapshot{Key: key, Timestamp: ts}, nil
}

// LatestCompanies returns the most recent company snapshot.
func (s Study) LatestCompanies() (CompanySnapshot, bool) {
	if len(s.Companies) == 0 {
		return CompanySnapshot{}, false
	}
	return s.Companies[len(s.Companies)-1], true
}

// LatestInsights returns the most recent insight snapshot.
func (s Study) LatestInsights() (InsightSnapshot, bool) {
	if len(s.SourceTopics) == 0 {
		return InsightSnapshot{}, false
	}
	return s.SourceTopics[len(s.SourceTopics)-1], true
}

// CompanyCount is the number of companies in the most recent snapshot.
func (s Study) CompanyCount() int {
	latest, ok := s.LatestCompanies()
	if !ok {
		return 0
	}
	return len(latest.IncludedCompanies)
}

// -- Derived report data --

// InsightSummary is one ranked insight of a source interaction.
type InsightSummary struct {
	Insight            string  `json:"insight"`
	Type               string  `json:"type"`
	Count              int     `json:"count"`
	AvgSimilarityScore float64 `json:"avgSimilarityScore"`
	Excerpts           string  `json:"excerpts"`
}

// ReportFile is a rendered document ready for persistence.
type ReportFile struct {
	Name    string
	Path    string
	Content []byte
}

// RemoteFile is a file that already exists in a remote store.
type RemoteFile struct {
	Name    string
	Path    string
	Version string
}

// Collections is one loaded copy of every entity collection. A run reads it once and
// treats it as immutable.
type Collections struct {
	Companies    []Company
	Interactions []Interaction
	Studies      []Study
}
