package schemas

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Unmarshal(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`["abc", 42, 7.5, null]`), &ids))
	assert.Equal(t, []ID{"abc", "42", "7.5", ""}, ids)

	var bad ID
	err := json.Unmarshal([]byte(`{"x": 1}`), &bad)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCoordinate_Unmarshal(t *testing.T) {
	cases := map[string]Coordinate{
		`37.77`:     KnownCoordinate(37.77),
		`"-122.41"`: KnownCoordinate(-122.41),
		`"Unknown"`: {},
		`"unknown"`: {},
		`""`:        {},
		`null`:      {},
		`0`:         KnownCoordinate(0),
	}
	for raw, want := range cases {
		var got Coordinate
		require.NoError(t, json.Unmarshal([]byte(raw), &got), raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{`"north"`, `"NaN"`, `"Inf"`, `"-Infinity"`, `999`, `"-500"`, `180.5`} {
		var bad Coordinate
		assert.ErrorIs(t, json.Unmarshal([]byte(raw), &bad), ErrMalformedInput, raw)
	}
}

func TestCompany_NonFiniteCoordinateIsMalformed(t *testing.T) {
	var c Company
	err := json.Unmarshal([]byte(`{"name": "Acme", "latitude": "NaN", "longitude": "10"}`), &c)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCompany_HasLocationNeedsValidLatitude(t *testing.T) {
	c := Company{Latitude: KnownCoordinate(120), Longitude: KnownCoordinate(10)}
	assert.False(t, c.HasLocation(), "latitude beyond the poles")
	c.Latitude = KnownCoordinate(-90)
	assert.True(t, c.HasLocation())
}

func TestCoordinate_MarshalRoundTrip(t *testing.T) {
	out, err := json.Marshal([]Coordinate{{}, KnownCoordinate(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `["Unknown", 1.5]`, string(out))
}

func TestIdentifier_Unmarshal(t *testing.T) {
	var c Company
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Acme", "stock_symbol": "ACME", "exchange": "Unknown", "cik": 123456
	}`), &c))
	assert.Equal(t, KnownIdentifier("ACME"), c.StockSymbol)
	assert.False(t, c.Exchange.Known)
	assert.Equal(t, "Unknown", c.Exchange.Display())
	assert.Equal(t, KnownIdentifier("123456"), c.CIK)
}

func TestCompany_TotalInteractions(t *testing.T) {
	var linked, empty, missing Company
	require.NoError(t, json.Unmarshal([]byte(`{"name": "A", "linked_interactions": {"x": {}, "y": {}}}`), &linked))
	require.NoError(t, json.Unmarshal([]byte(`{"name": "B", "linked_interactions": {}}`), &empty))
	require.NoError(t, json.Unmarshal([]byte(`{"name": "C"}`), &missing))

	n, err := linked.TotalInteractions()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = empty.TotalInteractions()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = missing.TotalInteractions()
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), `"C"`)
}

func TestCompany_LocationAndAddress(t *testing.T) {
	c := Company{
		StreetAddress: "1 Market St",
		City:          "San Francisco",
		StateProvince: "Unknown",
		Country:       "USA",
		Latitude:      KnownCoordinate(37.79),
	}
	assert.False(t, c.HasLocation())
	c.Longitude = KnownCoordinate(-122.39)
	assert.True(t, c.HasLocation())
	assert.Equal(t, "1 Market St, San Francisco, USA", c.Address())
}

func TestInteraction_When(t *testing.T) {
	got, ok := Interaction{Date: "20240301", Time: "1405"}.When()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC), got)

	_, ok = Interaction{Date: "yesterday"}.When()
	assert.False(t, ok)

	i := Interaction{ID: "7", Name: "Call", GUID: "g-1"}
	for _, key := range []string{"7", "Call", "g-1"} {
		assert.True(t, i.Matches(key), key)
	}
	assert.False(t, i.Matches(""))
}

func TestStudy_SnapshotsAreOrderedNumerically(t *testing.T) {
	var s Study
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Market Entry",
		"status": 1,
		"companies": {
			"100": {"included_companies": [1, 2, 3]},
			"20":  {"included_companies": [1]},
			"9":   {"included_companies": []}
		},
		"sourceTopics": {
			"1700000000000": {"1": []},
			"999": {"2": []}
		}
	}`), &s))

	latest, ok := s.LatestCompanies()
	require.True(t, ok)
	assert.Equal(t, "100", latest.Key, "100 is newer than 20 even though it sorts first as text")
	if diff := cmp.Diff([]ID{"1", "2", "3"}, latest.IncludedCompanies); diff != "" {
		t.Errorf("included companies mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, s.CompanyCount())

	insights, ok := s.LatestInsights()
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), insights.Timestamp)
	assert.Contains(t, insights.Insights, "1")
	assert.Equal(t, StudyCaffeinated, s.Status)
}

func TestStudy_MalformedSnapshotKey(t *testing.T) {
	var s Study
	err := json.Unmarshal([]byte(`{"name": "Broken", "companies": {"latest": {"included_companies": []}}}`), &s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), "Broken")
}

func TestStudy_DuplicateSnapshotTimestamp(t *testing.T) {
	for name, doc := range map[string]string{
		"companies":    `{"name": "Twice", "companies": {"1": {"included_companies": [1]}, "01": {"included_companies": [2]}}}`,
		"sourceTopics": `{"name": "Twice", "sourceTopics": {"7": {"1": []}, " 7": {"2": []}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			var s Study
			err := json.Unmarshal([]byte(doc), &s)
			require.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), "name the same timestamp")
		})
	}
}

func TestStudy_EmptySnapshots(t *testing.T) {
	var s Study
	require.NoError(t, json.Unmarshal([]byte(`{"name": "New"}`), &s))
	_, ok := s.LatestCompanies()
	assert.False(t, ok)
	_, ok = s.LatestInsights()
	assert.False(t, ok)
	assert.Zero(t, s.CompanyCount())
}

func TestStudy_MarshalKeepsTimestampKeys(t *testing.T) {
	var s Study
	in := `{"name": "S", "status": 0, "companies": {"20": {"included_companies": ["a"]}}}`
	require.NoError(t, json.Unmarshal([]byte(in), &s))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Contains(t, back["companies"], "20")
}

func TestBatchError(t *testing.T) {
	err := &BatchError{
		Failed: map[string]error{
			"b.md": ErrRemoteConflict,
			"a.md": errors.New("boom"),
		},
		Succeeded: []string{"c.md"},
	}
	assert.Equal(t, []string{"a.md", "b.md"}, err.FailedPaths())
	assert.Equal(t, "2 of 3 report writes failed: a.md, b.md", err.Error())
	assert.ErrorIs(t, err, ErrRemoteConflict)

	var wrapped error = err
	var target *BatchError
	assert.True(t, errors.As(wrapped, &target))
}
