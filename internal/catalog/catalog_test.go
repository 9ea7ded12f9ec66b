// internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource_BlankFiltersReturnEverythingInOrder(t *testing.T) {
	s := NewStaticSource()

	all, err := s.Lookup(context.Background(), "", "")
	require.NoError(t, err)
	require.NotEmpty(t, all)

	again, err := s.Lookup(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, all, again, "lookup order must be stable")
}

func TestStaticSource_CountryFilter(t *testing.T) {
	s := NewStaticSource()

	results, err := s.Lookup(context.Background(), "", "Singapore")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		if r.Country != "" {
			assert.Equal(t, "Singapore", r.Country)
		}
	}
}

func TestStaticSource_FieldFilterKeepsUnrestrictedEntries(t *testing.T) {
	s := NewStaticSourceWith([]Scholarship{
		{Name: "CS Only", Field: "Computer Science"},
		{Name: "Open", Field: ""},
		{Name: "Med Only", Field: "Medicine"},
	})

	results, err := s.Lookup(context.Background(), "Computer Science", "")
	require.NoError(t, err)

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"CS Only", "Open"}, names)
}

func TestPostgresSource_Lookup(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"name", "university", "country", "field", "min_gpa", "required_tests",
		"requires_leadership", "target_regions", "amount", "coverage_usd", "deadline",
	}).
		AddRow("ASEAN Scholarship", "NUS", "Singapore", "", 8.5, []byte(`{"IELTS":6.5}`),
			false, []byte(`["southeast_asia"]`), "Full tuition", 38000.0, "February").
		AddRow("Merit Award", "NTU", "Singapore", "Computer Science", 8.0, nil,
			true, nil, "50% tuition", 12000.0, "April")

	mock.ExpectQuery("SELECT (.+) FROM scholarships").
		WithArgs("Computer Science", "Singapore").
		WillReturnRows(rows)

	source := NewPostgresSource(db)
	results, err := source.Lookup(context.Background(), "Computer Science", "Singapore")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "ASEAN Scholarship", results[0].Name)
	assert.Equal(t, 6.5, results[0].RequiredTests["IELTS"])
	assert.Equal(t, []string{"southeast_asia"}, results[0].TargetRegions)
	assert.True(t, results[1].RequiresLeadership)
	assert.Nil(t, results[1].RequiredTests)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM scholarships").
		WillReturnError(assert.AnError)

	source := NewPostgresSource(db)
	_, err = source.Lookup(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog query")
}
