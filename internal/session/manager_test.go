// internal/session/manager_test.go
package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
	"study-advisor/internal/normalizer"
	"study-advisor/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner mimics the orchestrator's contract: it normalizes exactly as the
// real pipeline does and returns a fresh report per run.
type fakeRunner struct {
	runs atomic.Int32
	err  error
}

func (f *fakeRunner) Run(_ context.Context, rawText string, prior *models.Profile, _ pipeline.EventSink) (*pipeline.RunOutput, error) {
	f.runs.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	profile := normalizer.Normalize(rawText, prior)
	return &pipeline.RunOutput{
		RunID:   "run-" + rawText[:min(4, len(rawText))],
		Profile: profile,
		Report:  &models.Report{RunID: "r", GeneratedAt: time.Now(), Overview: "overview for " + rawText},
	}, nil
}

func newManager(t *testing.T, runner Runner) (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, runner, nil, logger.NewTestLogger(t)), store
}

func TestApplyTurn_FirstMessageRunsPipelineAndPersists(t *testing.T) {
	runner := &fakeRunner{}
	m, store := newManager(t, runner)

	result, err := m.ApplyTurn(context.Background(), "s1", "GPA 9.8/10, IELTS 8.0, aiming for NUS computer science", nil)
	require.NoError(t, err)

	assert.True(t, result.PipelineRan)
	assert.Equal(t, int32(1), runner.runs.Load())
	require.NotNil(t, result.Report)

	stored, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, stored.LatestReport)
	assert.Greater(t, stored.Profile.FieldCount(), 0)
}

func TestApplyTurn_PureFollowUpDoesNotRerun(t *testing.T) {
	runner := &fakeRunner{}
	m, _ := newManager(t, runner)
	ctx := context.Background()

	first, err := m.ApplyTurn(ctx, "s1", "GPA 9.8/10, IELTS 8.0, aiming for NUS computer science", nil)
	require.NoError(t, err)
	require.True(t, first.PipelineRan)

	second, err := m.ApplyTurn(ctx, "s1", "why is the success likelihood so low?", nil)
	require.NoError(t, err)

	assert.False(t, second.PipelineRan, "a question adding no structured fields must not re-run")
	assert.Equal(t, int32(1), runner.runs.Load())
	assert.Equal(t, first.Report.Overview, second.Report.Overview)
}

func TestApplyTurn_CertificationRementionDoesNotRerun(t *testing.T) {
	runner := &fakeRunner{}
	m, _ := newManager(t, runner)
	ctx := context.Background()

	first, err := m.ApplyTurn(ctx, "s1", "I have Cisco and Azure certifications, GPA 9.0/10, aiming for NUS computer science", nil)
	require.NoError(t, err)
	require.True(t, first.PipelineRan)

	second, err := m.ApplyTurn(ctx, "s1", "Is my Cisco certification enough?", nil)
	require.NoError(t, err)

	assert.False(t, second.PipelineRan, "re-mentioning a known certification adds nothing and must not re-run")
	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestApplyTurn_NewInformationTriggersRerunWithMergedProfile(t *testing.T) {
	runner := &fakeRunner{}
	m, store := newManager(t, runner)
	ctx := context.Background()

	_, err := m.ApplyTurn(ctx, "s1", "GPA 9.8/10, aiming for NUS computer science", nil)
	require.NoError(t, err)

	result, err := m.ApplyTurn(ctx, "s1", "I also got SAT 1500", nil)
	require.NoError(t, err)

	assert.True(t, result.PipelineRan)
	assert.Equal(t, int32(2), runner.runs.Load())

	stored, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, stored.Profile.TestScores["SAT"], "new score merges into the profile")
	assert.Equal(t, "NUS", stored.Profile.TargetInstitution, "earlier fields survive the merge")
	assert.Len(t, stored.ReportHistory, 1, "previous report moves to history")
}

func TestApplyTurn_AbortedRunLeavesSessionUntouched(t *testing.T) {
	okRunner := &fakeRunner{}
	m, store := newManager(t, okRunner)
	ctx := context.Background()

	_, err := m.ApplyTurn(ctx, "s1", "GPA 9.8/10, aiming for NUS computer science", nil)
	require.NoError(t, err)
	before, err := store.Load(ctx, "s1")
	require.NoError(t, err)

	// Swap in a runner that aborts; the turn adds information so it will try
	// to run.
	m.runner = &fakeRunner{err: pipeline.ErrCancelled}
	_, err = m.ApplyTurn(ctx, "s1", "I also got SAT 1500", nil)
	require.ErrorIs(t, err, pipeline.ErrCancelled)

	after, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "nothing may be committed for an aborted run")
	assert.Equal(t, before.Profile, after.Profile)
}

func TestApplyTurn_FirstMessagePureGreetingStillRuns(t *testing.T) {
	// With no stored report there is nothing to answer from, so even a bare
	// greeting goes through the pipeline (and degrades to contingency there).
	runner := &fakeRunner{}
	m, _ := newManager(t, runner)

	result, err := m.ApplyTurn(context.Background(), "s1", "hi", nil)
	require.NoError(t, err)
	assert.True(t, result.PipelineRan)
}

func TestApplyTurn_SessionsAreIsolated(t *testing.T) {
	runner := &fakeRunner{}
	m, store := newManager(t, runner)
	ctx := context.Background()

	_, err := m.ApplyTurn(ctx, "alice", "GPA 9.8/10, aiming for NUS computer science", nil)
	require.NoError(t, err)
	_, err = m.ApplyTurn(ctx, "bob", "GPA 7.0/10, looking at Germany for engineering", nil)
	require.NoError(t, err)

	alice, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	bob, err := store.Load(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, alice.Profile.TargetInstitution, bob.Profile.TargetCountry)
	assert.Equal(t, "NUS", alice.Profile.TargetInstitution)
}
