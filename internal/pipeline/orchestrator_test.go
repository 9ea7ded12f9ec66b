// internal/pipeline/orchestrator_test.go
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"study-advisor/internal/catalog"
	apperrors "study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
	"study-advisor/internal/stages/applicationstrategy"
	"study-advisor/internal/stages/contingencyplan"
	"study-advisor/internal/stages/financialanalysis"
	"study-advisor/internal/stages/improvementplan"
	"study-advisor/internal/stages/scholarshipmatch"
	"study-advisor/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStage struct {
	kind  models.StageKind
	deps  []models.StageKind
	calls atomic.Int32
	runFn func(ctx context.Context, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (*models.StageResult, error)
}

func (s *stubStage) Kind() models.StageKind           { return s.kind }
func (s *stubStage) Dependencies() []models.StageKind { return s.deps }
func (s *stubStage) Run(ctx context.Context, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
	s.calls.Add(1)
	return s.runFn(ctx, profile, upstream)
}

func succeedingStub(kind models.StageKind, deps ...models.StageKind) *stubStage {
	return &stubStage{
		kind: kind,
		deps: deps,
		runFn: func(context.Context, models.Profile, map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			return successResult(kind), nil
		},
	}
}

func successResult(kind models.StageKind) *models.StageResult {
	r := &models.StageResult{Kind: kind, Status: models.StageSucceeded}
	switch kind {
	case models.StageScholarshipMatch:
		r.Scholarships = &models.ScholarshipMatchPayload{
			Candidates: []models.ScholarshipCandidate{{Name: "Award", Rank: 1, FitScore: 70, SuccessLikelihood: 60, MatchLevel: models.MatchGood, SubmissionStrategy: "apply"}},
			Summary:    "one match",
		}
	case models.StageFinancialAnalysis:
		r.Financial = &models.FinancialAnalysisPayload{
			Tuition:        models.CostEstimate{AnnualUSD: 20000, Basis: "test"},
			LivingCosts:    models.CostEstimate{AnnualUSD: 10000, Basis: "test"},
			FundingOptions: []models.FundingOption{{Name: "Loan", Coverage: "60%"}},
			TotalAnnualUSD: 30000,
		}
	case models.StageImprovementPlan:
		r.Improvement = &models.ImprovementPlanPayload{Actions: []models.ImprovementAction{{Area: "Testing", Action: "a", Timeline: "now"}}}
	case models.StageApplicationStrategy:
		r.Strategy = &models.ApplicationStrategyPayload{Timeline: []models.TimelineEntry{{Milestone: "m", When: "now", Tasks: []string{"t"}}}}
	case models.StageContingencyPlan:
		r.Contingency = &models.ContingencyPayload{Options: []models.ContingencyOption{{Path: "p", Rationale: "r"}}}
	}
	return r
}

func stubStages() []Stage {
	return []Stage{
		succeedingStub(models.StageScholarshipMatch),
		succeedingStub(models.StageFinancialAnalysis),
		succeedingStub(models.StageImprovementPlan, models.StageScholarshipMatch),
		succeedingStub(models.StageApplicationStrategy, models.StageScholarshipMatch, models.StageFinancialAnalysis),
		succeedingStub(models.StageContingencyPlan),
	}
}

func newOrchestrator(t *testing.T, stages []Stage, timeout TimeoutFunc) *Orchestrator {
	o, err := New(stages, registry.Default().OutputSchemas(), timeout, logger.NewTestLogger(t), nil)
	require.NoError(t, err)
	return o
}

func realStages(t *testing.T) []Stage {
	log := logger.NewTestLogger(t)
	return []Stage{
		scholarshipmatch.NewHandler(scholarshipmatch.LoadConfig(), catalog.NewStaticSource(), nil, log),
		financialanalysis.NewHandler(financialanalysis.LoadConfig(), nil, log),
		improvementplan.NewHandler(improvementplan.LoadConfig(), nil, log),
		applicationstrategy.NewHandler(applicationstrategy.LoadConfig(), nil, log),
		contingencyplan.NewHandler(contingencyplan.LoadConfig(), nil, log),
	}
}

func TestRun_SuccessEmitsFiveEventsInOrder(t *testing.T) {
	o := newOrchestrator(t, stubStages(), nil)

	var states []State
	out, err := o.Run(context.Background(), "GPA 9.0/10, aiming for NUS computer science", nil, func(e ProgressEvent) {
		states = append(states, e.State)
	})
	require.NoError(t, err)

	assert.Equal(t, []State{StateNormalizing, StateStage1Running, StateStage2Running, StateContingencyRunning, StateDone}, states)
	require.NotNil(t, out.Report)
	assert.False(t, out.Report.IsPartial)
	assert.Len(t, out.Results, 5)
	assert.NotEmpty(t, out.RunID)
}

func TestRun_EndToEndWithRealStages(t *testing.T) {
	o := newOrchestrator(t, realStages(t), nil)

	out, err := o.Run(context.Background(),
		"I'm a Vietnamese high school student with GPA 9.8/10, IELTS 8.0, SAT 1500. I was communications lead for a 200-person charity project. I want to study computer science at NUS in Singapore.",
		nil, nil)
	require.NoError(t, err)

	rep := out.Report
	require.NotNil(t, rep)
	assert.False(t, rep.IsPartial)
	assert.NotEmpty(t, rep.Scholarships)
	require.NotNil(t, rep.Financial)
	assert.NotEmpty(t, rep.Improvement)
	assert.NotEmpty(t, rep.Timeline)
	assert.NotEmpty(t, rep.Contingency)

	for i, c := range rep.Scholarships {
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestRun_RawOnlyMessageDegradesToContingency(t *testing.T) {
	// "hi" yields no structured fields: group 1 fails with INSUFFICIENT_INPUT,
	// group 2 must be synthesized as UPSTREAM_FAILED without being invoked,
	// and contingency still succeeds.
	improvement := &stubStage{
		kind: models.StageImprovementPlan,
		deps: []models.StageKind{models.StageScholarshipMatch},
		runFn: func(context.Context, models.Profile, map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			return successResult(models.StageImprovementPlan), nil
		},
	}
	strategy := &stubStage{
		kind: models.StageApplicationStrategy,
		deps: []models.StageKind{models.StageScholarshipMatch, models.StageFinancialAnalysis},
		runFn: func(context.Context, models.Profile, map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			return successResult(models.StageApplicationStrategy), nil
		},
	}

	log := logger.NewTestLogger(t)
	stages := []Stage{
		scholarshipmatch.NewHandler(scholarshipmatch.LoadConfig(), catalog.NewStaticSource(), nil, log),
		financialanalysis.NewHandler(financialanalysis.LoadConfig(), nil, log),
		improvement,
		strategy,
		contingencyplan.NewHandler(contingencyplan.LoadConfig(), nil, log),
	}
	o := newOrchestrator(t, stages, nil)

	out, err := o.Run(context.Background(), "hi", nil, nil)
	require.NoError(t, err, "a degraded run still succeeds")

	assert.Equal(t, int32(0), improvement.calls.Load(), "dependent stage must not be invoked")
	assert.Equal(t, int32(0), strategy.calls.Load(), "dependent stage must not be invoked")

	assert.Equal(t, apperrors.ErrCodeInsufficientInput, out.Results[models.StageScholarshipMatch].Error.Code)
	assert.Equal(t, apperrors.ErrCodeUpstreamFailed, out.Results[models.StageImprovementPlan].Error.Code)
	assert.Equal(t, apperrors.ErrCodeUpstreamFailed, out.Results[models.StageApplicationStrategy].Error.Code)

	rep := out.Report
	assert.True(t, rep.IsPartial)
	assert.Len(t, rep.Unavailable, 4)
	assert.NotEmpty(t, rep.Contingency)
}

func TestRun_CancellationAbortsWithoutReport(t *testing.T) {
	blocking := &stubStage{
		kind: models.StageScholarshipMatch,
		runFn: func(ctx context.Context, _ models.Profile, _ map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	stages := stubStages()
	stages[0] = blocking
	o := newOrchestrator(t, stages, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var terminal State
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out, err := o.Run(ctx, "GPA 9.0/10 at NUS", nil, func(e ProgressEvent) { terminal = e.State })
	require.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, out)
	assert.Equal(t, StateCancelled, terminal)
}

func TestRun_StageTimeoutDegradesNotFails(t *testing.T) {
	slow := &stubStage{
		kind: models.StageScholarshipMatch,
		runFn: func(ctx context.Context, _ models.Profile, _ map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	stages := stubStages()
	stages[0] = slow

	timeout := func(kind models.StageKind) time.Duration {
		if kind == models.StageScholarshipMatch {
			return 10 * time.Millisecond
		}
		return time.Second
	}
	o := newOrchestrator(t, stages, timeout)

	out, err := o.Run(context.Background(), "GPA 9.0/10 at NUS", nil, nil)
	require.NoError(t, err, "a stage timeout degrades the report, it does not fail the run")

	result := out.Results[models.StageScholarshipMatch]
	require.True(t, result.Failed())
	assert.Equal(t, apperrors.ErrCodeStageTimeout, result.Error.Code)
	assert.True(t, out.Report.IsPartial)
}

func TestRun_UnrecoverableFaultFailsTheRun(t *testing.T) {
	broken := &stubStage{
		kind: models.StageFinancialAnalysis,
		runFn: func(context.Context, models.Profile, map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			return nil, errors.New("nil map write")
		},
	}
	stages := stubStages()
	stages[1] = broken
	o := newOrchestrator(t, stages, nil)

	var failedEvent *ProgressEvent
	out, err := o.Run(context.Background(), "GPA 9.0/10 at NUS", nil, func(e ProgressEvent) {
		if e.State == StateFailed {
			failedEvent = &e
		}
	})
	require.Error(t, err)
	assert.Nil(t, out)
	require.NotNil(t, failedEvent)
	assert.Equal(t, models.StageFinancialAnalysis, failedEvent.FailedStage)
	require.NotNil(t, failedEvent.Error)
	assert.Equal(t, apperrors.ErrCodeUnrecoverableExecution, failedEvent.Error.Code)
}

func TestRun_PanickingStageFailsTheRun(t *testing.T) {
	panicking := &stubStage{
		kind: models.StageScholarshipMatch,
		runFn: func(context.Context, models.Profile, map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			panic("index out of range")
		},
	}
	stages := stubStages()
	stages[0] = panicking
	o := newOrchestrator(t, stages, nil)

	_, err := o.Run(context.Background(), "GPA 9.0/10 at NUS", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRun_SchemaViolationFailsTheRun(t *testing.T) {
	invalid := &stubStage{
		kind: models.StageScholarshipMatch,
		runFn: func(context.Context, models.Profile, map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
			return &models.StageResult{
				Kind:   models.StageScholarshipMatch,
				Status: models.StageSucceeded,
				// missing required summary and candidate fields
				Scholarships: &models.ScholarshipMatchPayload{},
			}, nil
		},
	}
	stages := stubStages()
	stages[0] = invalid
	o := newOrchestrator(t, stages, nil)

	_, err := o.Run(context.Background(), "GPA 9.0/10 at NUS", nil, nil)
	require.Error(t, err)
}

func TestNew_RejectsMissingStage(t *testing.T) {
	_, err := New(stubStages()[:4], nil, nil, logger.NewTestLogger(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(models.StageContingencyPlan))
}
