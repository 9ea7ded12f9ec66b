// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"study-advisor/internal/models"
)

// LoadRegistry reads a registry overlay from disk, for deployments that
// override timeouts or schemas without rebuilding.
func LoadRegistry(path string) (*StageRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg StageRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Default returns the built-in registry for the five pipeline stages.
func Default() *StageRegistry {
	return &StageRegistry{
		Version: "1.0.0",
		Stages: []StageSpec{
			{
				Kind:        models.StageScholarshipMatch,
				DisplayName: "Scholarship Matcher",
				Description: "Scores catalog scholarships against the profile and ranks the top candidates.",
				ErrorCodes:  []string{"INSUFFICIENT_INPUT", "CATALOG_QUERY_FAILED", "STAGE_TIMEOUT"},
				Timeout:     "15s",
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"candidates", "summary"},
					"properties": map[string]interface{}{
						"candidates": map[string]interface{}{
							"type":     "array",
							"maxItems": 5,
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"name", "fitScore", "successLikelihood", "rank", "matchLevel", "submissionStrategy"},
								"properties": map[string]interface{}{
									"fitScore":          map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
									"successLikelihood": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
									"rank":              map[string]interface{}{"type": "integer", "minimum": 1},
								},
							},
						},
						"summary": map[string]interface{}{"type": "string"},
					},
				},
			},
			{
				Kind:        models.StageFinancialAnalysis,
				DisplayName: "Financial Analyst",
				Description: "Estimates tuition and living costs and lays out structured funding options.",
				ErrorCodes:  []string{"INSUFFICIENT_INPUT", "STAGE_TIMEOUT"},
				Timeout:     "15s",
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"tuition", "livingCosts", "fundingOptions", "totalAnnualUsd"},
					"properties": map[string]interface{}{
						"fundingOptions": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"name", "coverage"},
							},
						},
					},
				},
			},
			{
				Kind:        models.StageImprovementPlan,
				DisplayName: "Improvement Planner",
				Description: "Derives profile-strengthening actions from unmet scholarship requirements.",
				DependsOn:   []models.StageKind{models.StageScholarshipMatch},
				ErrorCodes:  []string{"INSUFFICIENT_INPUT", "UPSTREAM_FAILED", "STAGE_TIMEOUT"},
				Timeout:     "15s",
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"actions"},
					"properties": map[string]interface{}{
						"actions": map[string]interface{}{
							"type":     "array",
							"minItems": 1,
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"area", "action", "timeline"},
							},
						},
					},
				},
			},
			{
				Kind:        models.StageApplicationStrategy,
				DisplayName: "Application Strategist",
				Description: "Builds the application timeline from the shortlist and the financial picture.",
				DependsOn:   []models.StageKind{models.StageScholarshipMatch, models.StageFinancialAnalysis},
				ErrorCodes:  []string{"INSUFFICIENT_INPUT", "UPSTREAM_FAILED", "STAGE_TIMEOUT"},
				Timeout:     "15s",
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"timeline"},
					"properties": map[string]interface{}{
						"timeline": map[string]interface{}{
							"type":     "array",
							"minItems": 1,
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"milestone", "when", "tasks"},
							},
						},
					},
				},
			},
			{
				Kind:        models.StageContingencyPlan,
				DisplayName: "Contingency Planner",
				Description: "Produces fallback paths from whatever results exist; never fails for lack of input.",
				ErrorCodes:  []string{"STAGE_TIMEOUT"},
				Timeout:     "15s",
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"options"},
					"properties": map[string]interface{}{
						"options": map[string]interface{}{
							"type":     "array",
							"minItems": 1,
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"path", "rationale"},
							},
						},
					},
				},
			},
		},
	}
}

// Spec returns the spec for one stage kind.
func (r *StageRegistry) Spec(kind models.StageKind) (StageSpec, error) {
	for _, s := range r.Stages {
		if s.Kind == kind {
			return s, nil
		}
	}
	return StageSpec{}, fmt.Errorf("unknown stage kind %q", kind)
}

// OutputSchemas returns the schema map keyed by stage kind, as the
// orchestrator consumes it.
func (r *StageRegistry) OutputSchemas() map[models.StageKind]map[string]interface{} {
	out := make(map[models.StageKind]map[string]interface{}, len(r.Stages))
	for _, s := range r.Stages {
		out[s.Kind] = s.OutputSchema
	}
	return out
}
