// internal/stages/scholarshipmatch/handler_test.go
package scholarshipmatch

import (
	"context"
	"errors"
	"testing"

	"study-advisor/internal/catalog"
	apperrors "study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, source catalog.Source) *Handler {
	return NewHandler(LoadConfig(), source, nil, logger.NewTestLogger(t))
}

func strongProfile() models.Profile {
	return models.Profile{
		TargetInstitution: "NUS",
		TargetCountry:     "Singapore",
		FieldOfStudy:      "Computer Science",
		GPA:               &models.GPA{Value: 9.8, Scale: 10},
		TestScores:        map[string]float64{"IELTS": 8, "SAT": 1500},
		Extracurriculars:  []string{"communications lead, 200-person charity project"},
		RawText:           "Vietnamese student, GPA 9.8/10, IELTS 8.0, SAT 1500, aiming for NUS computer science",
	}
}

type failingSource struct{ err error }

func (f *failingSource) Lookup(context.Context, string, string) ([]catalog.Scholarship, error) {
	return nil, f.err
}

func TestRun_RanksCandidatesContiguously(t *testing.T) {
	h := newHandler(t, catalog.NewStaticSource())

	result, err := h.Run(context.Background(), strongProfile(), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	payload := result.Scholarships
	require.NotNil(t, payload)
	require.NotEmpty(t, payload.Candidates)
	assert.LessOrEqual(t, len(payload.Candidates), 5)

	for i, c := range payload.Candidates {
		assert.Equal(t, i+1, c.Rank, "ranks must be contiguous from 1")
		if i > 0 {
			prev := payload.Candidates[i-1]
			assert.GreaterOrEqual(t, prev.FitScore, c.FitScore, "fit scores must be non-increasing")
			if prev.FitScore == c.FitScore {
				assert.GreaterOrEqual(t, prev.SuccessLikelihood, c.SuccessLikelihood)
			}
		}
		assert.GreaterOrEqual(t, c.FitScore, 45, "candidates below the fair cutoff must be excluded")
		assert.NotEmpty(t, c.SubmissionStrategy)
		assert.NotEqual(t, models.MatchPoor, c.MatchLevel)
	}
	assert.NotEmpty(t, payload.Summary)
}

func TestRun_FullTiesKeepCatalogOrder(t *testing.T) {
	// Two identical entries differing only in name; the earlier one must win
	// the tie.
	entry := catalog.Scholarship{Country: "Singapore", MinGPA: 8, Amount: "50% tuition"}
	first, second := entry, entry
	first.Name = "First Award"
	second.Name = "Second Award"

	h := newHandler(t, catalog.NewStaticSourceWith([]catalog.Scholarship{first, second}))
	result, err := h.Run(context.Background(), strongProfile(), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	candidates := result.Scholarships.Candidates
	require.Len(t, candidates, 2)
	assert.Equal(t, "First Award", candidates[0].Name)
	assert.Equal(t, "Second Award", candidates[1].Name)
	assert.Equal(t, candidates[0].FitScore, candidates[1].FitScore)
}

func TestRun_CapsAtFiveCandidates(t *testing.T) {
	entries := make([]catalog.Scholarship, 0, 8)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		entries = append(entries, catalog.Scholarship{Name: name, MinGPA: 7})
	}

	h := newHandler(t, catalog.NewStaticSourceWith(entries))
	result, err := h.Run(context.Background(), strongProfile(), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Len(t, result.Scholarships.Candidates, 5)
}

func TestRun_EmptyProfileIsInsufficientInput(t *testing.T) {
	h := newHandler(t, catalog.NewStaticSource())

	result, err := h.Run(context.Background(), models.Profile{RawText: "hi"}, nil)
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeInsufficientInput, result.Error.Code)
	assert.Nil(t, result.Scholarships)
}

func TestRun_FewerThanThreeCandidatesStillSucceeds(t *testing.T) {
	h := newHandler(t, catalog.NewStaticSourceWith([]catalog.Scholarship{
		{Name: "Only Award", MinGPA: 7},
	}))

	result, err := h.Run(context.Background(), strongProfile(), nil)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Len(t, result.Scholarships.Candidates, 1)
}

func TestRun_CatalogFailureFailsStageNotRun(t *testing.T) {
	h := newHandler(t, &failingSource{err: errors.New("connection refused")})

	result, err := h.Run(context.Background(), strongProfile(), nil)
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeCatalogQueryFailed, result.Error.Code)
}

func TestRun_IsDeterministic(t *testing.T) {
	h := newHandler(t, catalog.NewStaticSource())
	profile := strongProfile()

	first, err := h.Run(context.Background(), profile, nil)
	require.NoError(t, err)
	second, err := h.Run(context.Background(), profile, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Scholarships.Candidates, second.Scholarships.Candidates)
	assert.Equal(t, first.Scholarships.Summary, second.Scholarships.Summary)
}

func TestSuccessLikelihoodBounds(t *testing.T) {
	assert.Equal(t, 95, successLikelihood(100, 10, 0))
	assert.Equal(t, 5, successLikelihood(45, 1, 8))
	assert.Equal(t, 70, successLikelihood(70, 5, 0))
}

func TestMatchLevelBuckets(t *testing.T) {
	assert.Equal(t, models.MatchExcellent, matchLevel(80))
	assert.Equal(t, models.MatchGood, matchLevel(65))
	assert.Equal(t, models.MatchFair, matchLevel(45))
	assert.Equal(t, models.MatchFair, matchLevel(64))
}
