// internal/models/stage.go
package models

import (
	"time"

	"study-advisor/internal/common/errors"
)

// StageKind identifies one analytical role in the pipeline. The set is
// closed: new stages are added by adding a kind and a payload variant, not by
// changing the orchestrator's control flow.
type StageKind string

const (
	StageScholarshipMatch    StageKind = "scholarship-match"
	StageFinancialAnalysis   StageKind = "financial-analysis"
	StageImprovementPlan     StageKind = "improvement-plan"
	StageApplicationStrategy StageKind = "application-strategy"
	StageContingencyPlan     StageKind = "contingency-plan"
)

// AllStageKinds returns the five pipeline stages in dependency order.
func AllStageKinds() []StageKind {
	return []StageKind{
		StageScholarshipMatch,
		StageFinancialAnalysis,
		StageImprovementPlan,
		StageApplicationStrategy,
		StageContingencyPlan,
	}
}

// StageStatus is the lifecycle state of one stage invocation.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// StageResult is the typed outcome of one stage invocation. Exactly one
// payload pointer is set when Status is StageSucceeded, matching Kind.
type StageResult struct {
	Kind     StageKind          `json:"kind"`
	Status   StageStatus        `json:"status"`
	Error    *errors.StageError `json:"error,omitempty"`
	Duration time.Duration      `json:"duration,omitempty"`

	Scholarships *ScholarshipMatchPayload    `json:"scholarships,omitempty"`
	Financial    *FinancialAnalysisPayload   `json:"financial,omitempty"`
	Improvement  *ImprovementPlanPayload     `json:"improvement,omitempty"`
	Strategy     *ApplicationStrategyPayload `json:"strategy,omitempty"`
	Contingency  *ContingencyPayload         `json:"contingency,omitempty"`
}

// Succeeded reports whether the stage completed with a payload.
func (r *StageResult) Succeeded() bool {
	return r != nil && r.Status == StageSucceeded
}

// Failed reports whether the stage ended in a terminal failure.
func (r *StageResult) Failed() bool {
	return r != nil && r.Status == StageFailed
}

// Payload returns the stage-specific payload, or nil for failed results.
func (r *StageResult) Payload() interface{} {
	switch {
	case r.Scholarships != nil:
		return r.Scholarships
	case r.Financial != nil:
		return r.Financial
	case r.Improvement != nil:
		return r.Improvement
	case r.Strategy != nil:
		return r.Strategy
	case r.Contingency != nil:
		return r.Contingency
	}
	return nil
}

// NewFailedResult builds a Failed StageResult carrying the error descriptor.
func NewFailedResult(kind StageKind, stageErr *errors.StageError) *StageResult {
	return &StageResult{Kind: kind, Status: StageFailed, Error: stageErr}
}

// MatchLevel buckets a fit score, mirroring the matcher's scoring rubric.
type MatchLevel string

const (
	MatchExcellent MatchLevel = "excellent" // >= 80
	MatchGood      MatchLevel = "good"      // >= 65
	MatchFair      MatchLevel = "fair"      // >= 45
	MatchPoor      MatchLevel = "poor"      // below fair, excluded from candidates
)

// ScholarshipCandidate is one ranked scholarship recommendation.
// Rank values within a payload form a contiguous 1..k sequence ordered by
// descending FitScore, ties broken by descending SuccessLikelihood, then by
// catalog input order.
type ScholarshipCandidate struct {
	Name                string     `json:"name"`
	University          string     `json:"university,omitempty"`
	FitScore            int        `json:"fitScore"`          // 0-100
	SuccessLikelihood   int        `json:"successLikelihood"` // 0-100
	Rank                int        `json:"rank"`              // 1-based
	MatchLevel          MatchLevel `json:"matchLevel"`
	Amount              string     `json:"amount,omitempty"`
	MatchingCriteria    []string   `json:"matchingCriteria,omitempty"`
	MissingRequirements []string   `json:"missingRequirements,omitempty"`
	SubmissionStrategy  string     `json:"submissionStrategy"`
}

// ScholarshipMatchPayload holds 3-5 ranked candidates; fewer is a degraded
// but still successful result.
type ScholarshipMatchPayload struct {
	Candidates []ScholarshipCandidate `json:"candidates"`
	Summary    string                 `json:"summary"`
}

// CostEstimate is a structured annual cost figure with its basis.
type CostEstimate struct {
	AnnualUSD float64 `json:"annualUsd"`
	Basis     string  `json:"basis"`
}

// FundingOption is one structured funding entry, never free text.
type FundingOption struct {
	Name      string  `json:"name"`
	AmountUSD float64 `json:"amountUsd,omitempty"`
	Coverage  string  `json:"coverage"`
	Notes     string  `json:"notes,omitempty"`
}

// FinancialAnalysisPayload is the financial breakdown section.
type FinancialAnalysisPayload struct {
	Tuition        CostEstimate    `json:"tuition"`
	LivingCosts    CostEstimate    `json:"livingCosts"`
	FundingOptions []FundingOption `json:"fundingOptions"`
	TotalAnnualUSD float64         `json:"totalAnnualUsd"`
	FundingGapUSD  float64         `json:"fundingGapUsd"`
}

// ImprovementAction is one actionable profile-strengthening item.
type ImprovementAction struct {
	Area     string `json:"area"`
	Action   string `json:"action"`
	Timeline string `json:"timeline"`
	Metric   string `json:"metric,omitempty"`
}

// ImprovementPlanPayload holds the ordered improvement actions.
type ImprovementPlanPayload struct {
	Actions []ImprovementAction `json:"actions"`
}

// TimelineEntry is one application milestone.
type TimelineEntry struct {
	Milestone string   `json:"milestone"`
	When      string   `json:"when"` // deadline or relative time
	Tasks     []string `json:"tasks"`
}

// ApplicationStrategyPayload is the strategy and timeline section.
type ApplicationStrategyPayload struct {
	Timeline []TimelineEntry `json:"timeline"`
	Notes    string          `json:"notes,omitempty"`
}

// ContingencyOption is one alternative path.
type ContingencyOption struct {
	Path       string   `json:"path"`
	Rationale  string   `json:"rationale"`
	FirstSteps []string `json:"firstSteps,omitempty"`
}

// ContingencyPayload always holds at least one option, even when every other
// stage failed.
type ContingencyPayload struct {
	Options []ContingencyOption `json:"options"`
}
