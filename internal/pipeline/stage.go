// internal/pipeline/stage.go
package pipeline

import (
	"context"

	"study-advisor/internal/models"
)

// Stage is one analytical unit of the pipeline. Run returns a StageResult for
// every expected outcome, including failures: a non-nil error is reserved for
// unrecoverable internal faults and fails the whole run. Implementations must
// treat the profile and upstream results as read-only and honor ctx
// cancellation on any blocking call.
type Stage interface {
	Kind() models.StageKind
	Dependencies() []models.StageKind
	Run(ctx context.Context, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (*models.StageResult, error)
}
