// internal/catalog/static.go
package catalog

import (
	"context"
	"strings"
)

// StaticSource serves a built-in seed list and needs no external services.
// It is the default backend and the deterministic one used in tests.
type StaticSource struct {
	entries []Scholarship
}

// NewStaticSource returns a source backed by the built-in seed list.
func NewStaticSource() *StaticSource {
	return &StaticSource{entries: seedScholarships}
}

// NewStaticSourceWith returns a source serving the given entries, preserving
// their order.
func NewStaticSourceWith(entries []Scholarship) *StaticSource {
	return &StaticSource{entries: entries}
}

// Lookup filters the seed list by field and country. Unrestricted entries
// always match; a blank filter matches everything.
func (s *StaticSource) Lookup(_ context.Context, field, country string) ([]Scholarship, error) {
	out := make([]Scholarship, 0, len(s.entries))
	for _, e := range s.entries {
		if !fieldMatches(e.Field, field) || !countryMatches(e.Country, country) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func fieldMatches(entryField, want string) bool {
	if entryField == "" || want == "" {
		return true
	}
	return strings.EqualFold(entryField, want)
}

func countryMatches(entryCountry, want string) bool {
	if entryCountry == "" || want == "" {
		return true
	}
	return strings.EqualFold(entryCountry, want)
}

var seedScholarships = []Scholarship{
	{
		Name:          "ASEAN Undergraduate Scholarship",
		University:    "NUS",
		Country:       "Singapore",
		MinGPA:        8.5,
		RequiredTests: map[string]float64{"IELTS": 6.5},
		TargetRegions: []string{"southeast_asia"},
		Amount:        "Full tuition + living allowance",
		CoverageUSD:   38000,
		Deadline:      "February",
	},
	{
		Name:               "Science & Technology Undergraduate Scholarship",
		University:         "NUS",
		Country:            "Singapore",
		Field:              "Computer Science",
		MinGPA:             9.0,
		RequiredTests:      map[string]float64{"SAT": 1400},
		RequiresLeadership: true,
		Amount:             "Full tuition + stipend",
		CoverageUSD:        42000,
		Deadline:           "March",
	},
	{
		Name:               "Lester B. Pearson International Scholarship",
		University:         "University of Toronto",
		Country:            "Canada",
		MinGPA:             9.3,
		RequiredTests:      map[string]float64{"IELTS": 6.5},
		RequiresLeadership: true,
		Amount:             "Full tuition, books, residence",
		CoverageUSD:        45000,
		Deadline:           "January",
	},
	{
		Name:        "International Major Entrance Scholarship",
		University:  "University of British Columbia",
		Country:     "Canada",
		MinGPA:      8.8,
		Amount:      "Up to CAD 25,000/year",
		CoverageUSD: 18000,
		Deadline:    "December",
	},
	{
		Name:          "Global Merit Scholarship",
		University:    "NTU",
		Country:       "Singapore",
		MinGPA:        8.0,
		RequiredTests: map[string]float64{"IELTS": 6.0},
		Amount:        "50% tuition",
		CoverageUSD:   12000,
		Deadline:      "April",
	},
	{
		Name:        "International Excellence Award",
		University:  "University of Melbourne",
		Country:     "Australia",
		MinGPA:      8.2,
		Amount:      "AUD 10,000/year",
		CoverageUSD: 7000,
		Deadline:    "Rolling",
	},
	{
		Name:          "DAAD Study Scholarship",
		University:    "TU Munich",
		Country:       "Germany",
		MinGPA:        7.5,
		RequiredTests: map[string]float64{"IELTS": 6.0},
		Amount:        "EUR 934/month stipend",
		CoverageUSD:   11000,
		Deadline:      "October",
	},
	{
		Name:        "Women in STEM Grant",
		University:  "",
		Field:       "Engineering",
		MinGPA:      7.0,
		Amount:      "USD 5,000 one-time",
		CoverageUSD: 5000,
		Deadline:    "Rolling",
	},
}
