// internal/stages/applicationstrategy/handler.go
package applicationstrategy

import (
	"context"
	"fmt"
	"time"

	"study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
	"study-advisor/internal/reasoner"
)

const TaskType = "application-strategy"

type Handler struct {
	config   *Config
	reasoner reasoner.Client
	logger   logger.Logger
}

func NewHandler(config *Config, rc reasoner.Client, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		reasoner: rc,
		logger:   log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Kind() models.StageKind {
	return models.StageApplicationStrategy
}

func (h *Handler) Dependencies() []models.StageKind {
	return []models.StageKind{models.StageScholarshipMatch, models.StageFinancialAnalysis}
}

// Run lays out the application timeline from the matched scholarships and the
// financial picture. Both dependencies are guaranteed successful by the
// orchestrator's gating.
func (h *Handler) Run(ctx context.Context, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
	start := time.Now()

	match := upstream[models.StageScholarshipMatch]
	financial := upstream[models.StageFinancialAnalysis]
	if !match.Succeeded() || match.Scholarships == nil {
		return nil, fmt.Errorf("application strategy invoked without a successful scholarship result")
	}
	if !financial.Succeeded() || financial.Financial == nil {
		return nil, fmt.Errorf("application strategy invoked without a successful financial result")
	}

	if profile.FieldCount() == 0 {
		return models.NewFailedResult(h.Kind(), errors.NewInsufficientInput("no structured fields extracted from the message")), nil
	}

	timeline := buildTimeline(profile, match.Scholarships, financial.Financial)

	payload := &models.ApplicationStrategyPayload{
		Timeline: timeline,
		Notes:    h.notes(ctx, match.Scholarships, financial.Financial),
	}

	h.logger.Info("application strategy complete", map[string]interface{}{
		"milestones": len(timeline),
	})

	return &models.StageResult{
		Kind:     h.Kind(),
		Status:   models.StageSucceeded,
		Strategy: payload,
		Duration: time.Since(start),
	}, nil
}

// buildTimeline emits four milestones in fixed order. Tasks reference the
// actual candidates and funding figures so the plan is specific to this run.
func buildTimeline(profile models.Profile, match *models.ScholarshipMatchPayload, financial *models.FinancialAnalysisPayload) []models.TimelineEntry {
	shortlist := models.TimelineEntry{
		Milestone: "Research and shortlist",
		When:      "now",
		Tasks:     []string{"Confirm program requirements for " + targetLabel(profile)},
	}
	for i, c := range match.Candidates {
		if i == 3 {
			break
		}
		shortlist.Tasks = append(shortlist.Tasks, "Review eligibility details for "+c.Name)
	}

	documents := models.TimelineEntry{
		Milestone: "Documents and testing",
		When:      "1-2 months",
		Tasks: []string{
			"Request two academic recommendation letters",
			"Draft the personal statement and scholarship essays",
		},
	}
	for _, c := range match.Candidates {
		for _, missing := range c.MissingRequirements {
			documents.Tasks = append(documents.Tasks, "Resolve: "+missing)
		}
		break // top candidate's gaps drive the document phase
	}

	submissions := models.TimelineEntry{
		Milestone: "Submit applications",
		When:      submissionWindow(match.Candidates),
		Tasks:     []string{"Submit program and scholarship applications", "Track confirmation emails and portals"},
	}

	finances := models.TimelineEntry{
		Milestone: "Visa and finances",
		When:      "after admission offers",
		Tasks: []string{
			fmt.Sprintf("Prepare proof of funds covering about USD %.0f per year", financial.TotalAnnualUSD),
			"Book the visa appointment and gather supporting documents",
		},
	}
	if financial.FundingGapUSD > 0 {
		finances.Tasks = append(finances.Tasks,
			fmt.Sprintf("Close the remaining USD %.0f funding gap from the listed options", financial.FundingGapUSD))
	}

	return []models.TimelineEntry{shortlist, documents, submissions, finances}
}

// submissionWindow picks the earliest concrete deadline mentioned by the
// candidates, falling back to a generic window.
func submissionWindow(candidates []models.ScholarshipCandidate) string {
	for _, c := range candidates {
		if c.SubmissionStrategy != "" && c.Rank == 1 {
			return "3-4 months, aligned with the top candidate's deadline"
		}
	}
	return "3-4 months"
}

func (h *Handler) notes(ctx context.Context, match *models.ScholarshipMatchPayload, financial *models.FinancialAnalysisPayload) string {
	fallback := fmt.Sprintf("Plan around %d scholarship applications and an annual budget near USD %.0f.",
		len(match.Candidates), financial.TotalAnnualUSD)

	if h.reasoner == nil {
		return fallback
	}

	facts := map[string]string{
		"candidates": fmt.Sprintf("%d scholarships shortlisted.", len(match.Candidates)),
		"budget":     fmt.Sprintf("Annual cost near USD %.0f with a USD %.0f gap.", financial.TotalAnnualUSD, financial.FundingGapUSD),
	}
	text, err := h.reasoner.Narrate(ctx, "strategy", facts)
	if err != nil || text == "" {
		if err != nil {
			h.logger.Warn("narration unavailable, using template notes", map[string]interface{}{"error": err.Error()})
		}
		return fallback
	}
	return text
}

func targetLabel(p models.Profile) string {
	switch {
	case p.TargetInstitution != "":
		return p.TargetInstitution
	case p.TargetCountry != "":
		return "universities in " + p.TargetCountry
	default:
		return "your target universities"
	}
}
