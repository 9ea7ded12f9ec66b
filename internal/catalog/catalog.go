// Package catalog provides scholarship lookup for the matching stage.
package catalog

import "context"

// Scholarship is one catalog entry with its eligibility requirements.
// MinGPA is on a 10-point scale; empty Field or Country means unrestricted.
type Scholarship struct {
	Name               string             `json:"name"`
	University         string             `json:"university"`
	Country            string             `json:"country,omitempty"`
	Field              string             `json:"field,omitempty"`
	MinGPA             float64            `json:"minGpa,omitempty"`
	RequiredTests      map[string]float64 `json:"requiredTests,omitempty"`
	RequiresLeadership bool               `json:"requiresLeadership,omitempty"`
	TargetRegions      []string           `json:"targetRegions,omitempty"` // empty = all
	Amount             string             `json:"amount,omitempty"`
	CoverageUSD        float64            `json:"coverageUsd,omitempty"`
	Deadline           string             `json:"deadline,omitempty"`
}

// Source looks up scholarships relevant to a target field and country.
// Implementations must return entries in a stable order: ranking ties fall
// back to catalog input order, so ordering is part of the contract.
type Source interface {
	Lookup(ctx context.Context, field, country string) ([]Scholarship, error)
}
