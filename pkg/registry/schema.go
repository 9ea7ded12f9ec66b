// pkg/registry/schema.go
package registry

import "study-advisor/internal/models"

// StageRegistry describes the closed set of pipeline stages: their
// dependencies, error codes and output payload schemas.
type StageRegistry struct {
	Version string      `json:"version"`
	Stages  []StageSpec `json:"stages"`
}

// StageSpec is the static metadata for one stage.
type StageSpec struct {
	Kind         models.StageKind       `json:"kind"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	DependsOn    []models.StageKind     `json:"dependsOn,omitempty"`
	ErrorCodes   []string               `json:"errorCodes"`
	Timeout      string                 `json:"timeout"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
}
