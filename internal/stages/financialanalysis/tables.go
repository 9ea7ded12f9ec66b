// internal/stages/financialanalysis/tables.go
package financialanalysis

import "strings"

// Annual tuition baselines in USD by destination country, before the field
// multiplier. The fallback covers destinations not in the table.
var tuitionByCountry = map[string]float64{
	"usa":         35000,
	"uk":          32000,
	"australia":   28000,
	"canada":      25000,
	"singapore":   20000,
	"netherlands": 15000,
	"germany":     8000,
}

const defaultTuitionUSD = 18000

// Field multipliers applied to the tuition baseline.
var fieldMultipliers = map[string]float64{
	"medicine":         1.5,
	"business":         1.2,
	"engineering":      1.15,
	"computer science": 1.1,
	"arts":             0.9,
}

// Annual living cost estimates in USD by destination country.
var livingCostByCountry = map[string]float64{
	"usa":         18000,
	"uk":          17000,
	"australia":   16000,
	"canada":      15000,
	"singapore":   14000,
	"netherlands": 13000,
	"germany":     12000,
}

const defaultLivingUSD = 12000

// TuitionUSD estimates annual tuition for a country and field of study.
// Unknown countries fall back to an international average.
func TuitionUSD(country, field string) float64 {
	base := float64(defaultTuitionUSD)
	if v, ok := tuitionByCountry[strings.ToLower(country)]; ok {
		base = v
	}
	multiplier := 1.0
	if m, ok := fieldMultipliers[strings.ToLower(field)]; ok {
		multiplier = m
	}
	return base * multiplier
}

// LivingUSD estimates annual living costs for a country.
func LivingUSD(country string) float64 {
	if v, ok := livingCostByCountry[strings.ToLower(country)]; ok {
		return v
	}
	return defaultLivingUSD
}

// CheapestCountry returns the lowest total-cost destination in the tables,
// excluding the given country. Used by contingency planning.
func CheapestCountry(excluding string) (string, float64) {
	bestName := ""
	bestCost := 0.0
	for country, tuition := range tuitionByCountry {
		if strings.EqualFold(country, excluding) {
			continue
		}
		total := tuition + livingCostByCountry[country]
		if bestName == "" || total < bestCost {
			bestName = country
			bestCost = total
		}
	}
	return bestName, bestCost
}
