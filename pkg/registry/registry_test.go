// pkg/registry/registry_test.go
package registry

import (
	"testing"

	"study-advisor/internal/common/validation"
	"study-advisor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversAllStageKinds(t *testing.T) {
	reg := Default()
	require.Len(t, reg.Stages, 5)

	for _, kind := range models.AllStageKinds() {
		spec, err := reg.Spec(kind)
		require.NoError(t, err, "stage %s must be registered", kind)
		assert.NotEmpty(t, spec.DisplayName)
		assert.NotNil(t, spec.OutputSchema)
	}

	_, err := reg.Spec("unknown-stage")
	assert.Error(t, err)
}

func TestOutputSchemas_AcceptValidPayloads(t *testing.T) {
	schemas := Default().OutputSchemas()

	valid := &models.ScholarshipMatchPayload{
		Candidates: []models.ScholarshipCandidate{
			{Name: "Award", FitScore: 80, SuccessLikelihood: 70, Rank: 1, MatchLevel: models.MatchExcellent, SubmissionStrategy: "apply early"},
		},
		Summary: "one match",
	}
	assert.NoError(t, validation.ValidatePayload(schemas[models.StageScholarshipMatch], valid))

	contingency := &models.ContingencyPayload{
		Options: []models.ContingencyOption{{Path: "Gap year", Rationale: "more time"}},
	}
	assert.NoError(t, validation.ValidatePayload(schemas[models.StageContingencyPlan], contingency))
}

func TestOutputSchemas_RejectInvalidPayloads(t *testing.T) {
	schemas := Default().OutputSchemas()

	// Six candidates exceed the cap.
	tooMany := &models.ScholarshipMatchPayload{Summary: "s"}
	for i := 0; i < 6; i++ {
		tooMany.Candidates = append(tooMany.Candidates, models.ScholarshipCandidate{
			Name: "A", FitScore: 50, SuccessLikelihood: 50, Rank: i + 1, MatchLevel: models.MatchFair, SubmissionStrategy: "s",
		})
	}
	assert.Error(t, validation.ValidatePayload(schemas[models.StageScholarshipMatch], tooMany))

	// Contingency must never be empty.
	assert.Error(t, validation.ValidatePayload(schemas[models.StageContingencyPlan], &models.ContingencyPayload{Options: []models.ContingencyOption{}}))
}
