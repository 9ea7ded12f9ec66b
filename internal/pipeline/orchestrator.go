// Package pipeline coordinates the multi-stage analysis run: profile
// normalization, two parallel stage groups, terminal contingency planning and
// report assembly.
package pipeline

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"
	"time"

	apperrors "study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/common/metrics"
	"study-advisor/internal/common/observability"
	"study-advisor/internal/common/validation"
	"study-advisor/internal/models"
	"study-advisor/internal/normalizer"
	"study-advisor/internal/report"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrCancelled is returned when the caller's context was cancelled mid-run.
// No report is produced and no session state may be committed.
var ErrCancelled = goerrors.New("pipeline run cancelled")

// TimeoutFunc returns the per-stage time budget.
type TimeoutFunc func(kind models.StageKind) time.Duration

// RunOutput is the result of one completed pipeline run.
type RunOutput struct {
	RunID   string
	Profile models.Profile
	Results map[models.StageKind]*models.StageResult
	Report  *models.Report
}

// Orchestrator drives the closed set of five stages. It owns sequencing,
// timeouts, failure isolation and payload validation; the stages own their
// domain logic.
type Orchestrator struct {
	stages  map[models.StageKind]Stage
	schemas map[models.StageKind]map[string]interface{}
	timeout TimeoutFunc
	logger  logger.Logger
	obs     *observability.Observability
}

// New builds an orchestrator from the stage implementations. All five kinds
// must be present. Schemas and obs may be nil.
func New(stages []Stage, schemas map[models.StageKind]map[string]interface{}, timeout TimeoutFunc, log logger.Logger, obs *observability.Observability) (*Orchestrator, error) {
	byKind := make(map[models.StageKind]Stage, len(stages))
	for _, s := range stages {
		byKind[s.Kind()] = s
	}
	for _, kind := range models.AllStageKinds() {
		if _, ok := byKind[kind]; !ok {
			return nil, fmt.Errorf("missing stage implementation for %q", kind)
		}
	}
	if timeout == nil {
		timeout = func(models.StageKind) time.Duration { return 15 * time.Second }
	}
	return &Orchestrator{
		stages:  byKind,
		schemas: schemas,
		timeout: timeout,
		logger:  log.With(map[string]interface{}{"component": "orchestrator"}),
		obs:     obs,
	}, nil
}

// Run executes one full analysis turn: normalize the raw message against the
// prior profile, run the stage groups, and assemble the report. Individual
// stage failures degrade the report; only unrecoverable faults or caller
// cancellation abort the run.
func (o *Orchestrator) Run(ctx context.Context, rawText string, prior *models.Profile, emit EventSink) (*RunOutput, error) {
	runID := uuid.New().String()
	log := o.logger.With(map[string]interface{}{"runId": runID})

	results := make(map[models.StageKind]*models.StageResult, 5)
	var mu sync.Mutex

	o.emit(emit, runID, StateNormalizing, "Normalizing your profile")
	profile := normalizer.Normalize(rawText, prior)
	log.Info("profile normalized", map[string]interface{}{"fieldCount": profile.FieldCount()})

	if ctx.Err() != nil {
		return nil, o.abort(ctx, emit, runID, "", nil, log)
	}

	// Group 1: independent stages, run concurrently.
	o.emit(emit, runID, StateStage1Running, "Matching scholarships and analyzing costs")
	group1 := []models.StageKind{models.StageScholarshipMatch, models.StageFinancialAnalysis}
	if err := o.runGroup(ctx, group1, profile, results, &mu); err != nil {
		return nil, o.abort(ctx, emit, runID, err.kind, err.stageErr, log)
	}

	// Group 2: dependent stages. A stage whose dependency did not succeed is
	// synthesized as failed without being invoked.
	o.emit(emit, runID, StateStage2Running, "Planning improvements and application strategy")
	group2 := make([]models.StageKind, 0, 2)
	for _, kind := range []models.StageKind{models.StageImprovementPlan, models.StageApplicationStrategy} {
		if failedDep := o.failedDependency(kind, results); failedDep != "" {
			results[kind] = models.NewFailedResult(kind,
				apperrors.NewUpstreamFailed(fmt.Sprintf("stage %q did not succeed", failedDep)))
			metrics.StageFailures.WithLabelValues(string(kind), string(apperrors.ErrCodeUpstreamFailed)).Inc()
			log.Warn("stage skipped", map[string]interface{}{"stage": kind, "failedDependency": failedDep})
			continue
		}
		group2 = append(group2, kind)
	}
	if err := o.runGroup(ctx, group2, profile, results, &mu); err != nil {
		return nil, o.abort(ctx, emit, runID, err.kind, err.stageErr, log)
	}

	// Contingency planning always runs, consuming whatever results exist.
	o.emit(emit, runID, StateContingencyRunning, "Preparing contingency options")
	contingency, runErr := o.runStage(ctx, o.stages[models.StageContingencyPlan], profile, snapshot(results))
	if runErr != nil {
		return nil, o.abort(ctx, emit, runID, models.StageContingencyPlan, runErr, log)
	}
	results[models.StageContingencyPlan] = contingency

	if ctx.Err() != nil {
		return nil, o.abort(ctx, emit, runID, "", nil, log)
	}

	rep := report.Assemble(profile, results, runID, time.Now())

	o.emit(emit, runID, StateDone, "Assembling your report")
	metrics.PipelineRuns.WithLabelValues("succeeded").Inc()
	if o.obs != nil {
		o.obs.RecordRun(ctx, "succeeded")
	}
	log.Info("run complete", map[string]interface{}{"partial": rep.IsPartial})

	return &RunOutput{
		RunID:   runID,
		Profile: profile,
		Results: results,
		Report:  rep,
	}, nil
}

type groupError struct {
	kind     models.StageKind
	stageErr error
}

func (e *groupError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.kind, e.stageErr)
}

// runGroup executes the given stages concurrently. Only unrecoverable faults
// propagate; ordinary failures land in results as failed StageResults.
func (o *Orchestrator) runGroup(ctx context.Context, kinds []models.StageKind, profile models.Profile, results map[models.StageKind]*models.StageResult, mu *sync.Mutex) *groupError {
	if len(kinds) == 0 {
		return nil
	}

	upstream := snapshot(results)
	g, gctx := errgroup.WithContext(ctx)
	var firstErr *groupError
	var errOnce sync.Once

	for _, kind := range kinds {
		stage := o.stages[kind]
		g.Go(func() error {
			result, err := o.runStage(gctx, stage, profile, upstream)
			if err != nil {
				errOnce.Do(func() { firstErr = &groupError{kind: stage.Kind(), stageErr: err} })
				return err
			}
			mu.Lock()
			results[stage.Kind()] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if firstErr != nil {
			return firstErr
		}
		return &groupError{stageErr: err}
	}
	return nil
}

// runStage wraps one stage invocation with its time budget, tracing, metrics,
// panic recovery and payload validation.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (result *models.StageResult, err error) {
	kind := stage.Kind()
	budget := o.timeout(kind)

	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if o.obs != nil {
		spanCtx, span := o.obs.StartStageSpan(stageCtx, string(kind))
		stageCtx = spanCtx
		defer span.End()
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		if o.obs != nil {
			o.obs.RecordStageDuration(ctx, string(kind), time.Since(start))
		}
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("stage %q panicked: %v", kind, r)
		}
	}()

	result, runErr := stage.Run(stageCtx, profile, upstream)
	if runErr != nil {
		// The parent context going away is cancellation, not a stage fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stageCtx.Err() == context.DeadlineExceeded || goerrors.Is(runErr, context.DeadlineExceeded) {
			o.logger.Warn("stage timed out", map[string]interface{}{"stage": kind, "budget": budget.String()})
			metrics.StageFailures.WithLabelValues(string(kind), string(apperrors.ErrCodeStageTimeout)).Inc()
			return models.NewFailedResult(kind, apperrors.NewStageTimeout(string(kind), budget)), nil
		}
		return nil, fmt.Errorf("unrecoverable stage fault: %w", runErr)
	}
	if result == nil {
		return nil, fmt.Errorf("stage %q returned neither result nor error", kind)
	}

	if result.Failed() && result.Error != nil {
		metrics.StageFailures.WithLabelValues(string(kind), string(result.Error.Code)).Inc()
	}

	if result.Succeeded() {
		if schema := o.schemas[kind]; schema != nil {
			if verr := validation.ValidatePayload(schema, result.Payload()); verr != nil {
				return nil, fmt.Errorf("%s: %w",
					apperrors.NewPayloadInvalid(string(kind), verr.Error()).Error(), verr)
			}
		}
	}

	return result, nil
}

// failedDependency returns the first dependency of kind that is absent or
// unsuccessful, or "" when all dependencies succeeded.
func (o *Orchestrator) failedDependency(kind models.StageKind, results map[models.StageKind]*models.StageResult) models.StageKind {
	for _, dep := range o.stages[kind].Dependencies() {
		if !results[dep].Succeeded() {
			return dep
		}
	}
	return ""
}

// abort classifies an aborted run as cancelled or failed, emits the terminal
// event and returns the error the caller should propagate.
func (o *Orchestrator) abort(ctx context.Context, emit EventSink, runID string, failedStage models.StageKind, stageErr error, log logger.Logger) error {
	if goerrors.Is(ctx.Err(), context.Canceled) || goerrors.Is(stageErr, context.Canceled) {
		o.emitEvent(emit, ProgressEvent{
			RunID: runID,
			State: StateCancelled,
			Label: "Analysis cancelled",
			At:    time.Now().UTC(),
		})
		metrics.PipelineRuns.WithLabelValues("cancelled").Inc()
		if o.obs != nil {
			o.obs.RecordRun(context.Background(), "cancelled")
		}
		log.Info("run cancelled", nil)
		return ErrCancelled
	}

	var sErr *apperrors.StageError
	if stageErr != nil {
		sErr = apperrors.NewUnrecoverableExecution(stageErr)
	}
	o.emitEvent(emit, ProgressEvent{
		RunID:       runID,
		State:       StateFailed,
		Label:       "Analysis failed",
		At:          time.Now().UTC(),
		FailedStage: failedStage,
		Error:       sErr,
	})
	metrics.PipelineRuns.WithLabelValues("failed").Inc()
	if o.obs != nil {
		o.obs.RecordRun(context.Background(), "failed")
	}
	log.WithError(stageErr).Error("run failed", map[string]interface{}{"stage": failedStage})
	if stageErr == nil {
		stageErr = fmt.Errorf("pipeline run failed")
	}
	return stageErr
}

func (o *Orchestrator) emit(sink EventSink, runID string, state State, label string) {
	o.emitEvent(sink, ProgressEvent{
		RunID: runID,
		State: state,
		Label: label,
		At:    time.Now().UTC(),
	})
}

func (o *Orchestrator) emitEvent(sink EventSink, event ProgressEvent) {
	metrics.ProgressEvents.WithLabelValues(string(event.State)).Inc()
	if sink != nil {
		sink(event)
	}
}

// snapshot copies the results map so concurrently running stages never see a
// map being mutated.
func snapshot(results map[models.StageKind]*models.StageResult) map[models.StageKind]*models.StageResult {
	out := make(map[models.StageKind]*models.StageResult, len(results))
	for k, v := range results {
		out[k] = v
	}
	return out
}
