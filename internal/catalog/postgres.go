// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresSource reads the scholarship catalog from the scholarships table.
// Rows are ordered by id so ties in the matcher resolve deterministically.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource wraps an open database handle.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

const lookupQuery = `
	SELECT name, university, country, field, min_gpa, required_tests,
	       requires_leadership, target_regions, amount, coverage_usd, deadline
	FROM scholarships
	WHERE (field = '' OR $1 = '' OR LOWER(field) = LOWER($1))
	  AND (country = '' OR $2 = '' OR LOWER(country) = LOWER($2))
	ORDER BY id`

// Lookup queries scholarships matching the field and country filters.
func (s *PostgresSource) Lookup(ctx context.Context, field, country string) ([]Scholarship, error) {
	rows, err := s.db.QueryContext(ctx, lookupQuery, field, country)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	var out []Scholarship
	for rows.Next() {
		var sc Scholarship
		var tests, regions []byte
		err := rows.Scan(&sc.Name, &sc.University, &sc.Country, &sc.Field,
			&sc.MinGPA, &tests, &sc.RequiresLeadership, &regions,
			&sc.Amount, &sc.CoverageUSD, &sc.Deadline)
		if err != nil {
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		if len(tests) > 0 {
			if err := json.Unmarshal(tests, &sc.RequiredTests); err != nil {
				sc.RequiredTests = nil
			}
		}
		if len(regions) > 0 {
			if err := json.Unmarshal(regions, &sc.TargetRegions); err != nil {
				sc.TargetRegions = nil
			}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
