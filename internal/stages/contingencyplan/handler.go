// internal/stages/contingencyplan/handler.go
package contingencyplan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
	"study-advisor/internal/reasoner"
	"study-advisor/internal/stages/financialanalysis"
)

const TaskType = "contingency-plan"

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
	return models.StageContingencyPlan
}

func (h *Handler) Dependencies() []models.StageKind {
	return nil
}

// Run builds fallback paths from whatever upstream results exist. It never
// fails for lack of input: with an empty profile and four failed stages it
// still produces at least one generic option from the raw message alone.
func (h *Handler) Run(ctx context.Context, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
	start := time.Now()

	var options []models.ContingencyOption

	match := upstream[models.StageScholarshipMatch]
	if !match.Succeeded() || match.Scholarships == nil || len(match.Scholarships.Candidates) == 0 {
		options = append(options, models.ContingencyOption{
			Path:      "Broaden the scholarship search",
			Rationale: "No ranked scholarship list is available for the current target, so widening the field or country multiplies the options.",
			FirstSteps: []string{
				"List two alternative fields of study adjacent to your interest",
				"Add one or two additional target countries to the search",
			},
		})
	}

	if alt := h.alternativeDestination(profile); alt != nil {
		options = append(options, *alt)
	}

	options = append(options, h.gapYearOption(ctx, upstream[models.StageImprovementPlan]))
	options = append(options, models.ContingencyOption{
		Path:      "Start locally, transfer abroad",
		Rationale: "Enrolling at a local university and joining an exchange or transfer program later defers costs without giving up the international goal.",
		FirstSteps: []string{
			"Shortlist local programs with established exchange partnerships",
			"Check credit-transfer rules at your target universities",
		},
	})

	if len(options) > h.config.MaxOptions {
		options = options[:h.config.MaxOptions]
	}

	payload := &models.ContingencyPayload{Options: options}

	h.logger.Info("contingency planning complete", map[string]interface{}{
		"options": len(options),
	})

	return &models.StageResult{
		Kind:        h.Kind(),
		Status:      models.StageSucceeded,
		Contingency: payload,
		Duration:    time.Since(start),
	}, nil
}

// alternativeDestination proposes the cheapest known destination other than
// the current target, with the cost delta as the rationale.
func (h *Handler) alternativeDestination(profile models.Profile) *models.ContingencyOption {
	altCountry, altCost := financialanalysis.CheapestCountry(profile.TargetCountry)
	if altCountry == "" {
		return nil
	}

	rationale := fmt.Sprintf("Studying in %s costs about USD %.0f per year all-in, among the lowest of the common destinations.",
		titleCase(altCountry), altCost)
	if profile.TargetCountry != "" {
		currentCost := financialanalysis.TuitionUSD(profile.TargetCountry, profile.FieldOfStudy) +
			financialanalysis.LivingUSD(profile.TargetCountry)
		if currentCost > altCost {
			rationale = fmt.Sprintf("%s would cost about USD %.0f per year versus USD %.0f for %s, cutting the budget risk substantially.",
				titleCase(altCountry), altCost, currentCost, profile.TargetCountry)
		}
	}

	return &models.ContingencyOption{
		Path:      "Lower-cost destination: " + titleCase(altCountry),
		Rationale: rationale,
		FirstSteps: []string{
			"Compare program rankings for your field in " + titleCase(altCountry),
			"Check language-of-instruction requirements",
		},
	}
}

func (h *Handler) gapYearOption(ctx context.Context, improvement *models.StageResult) models.ContingencyOption {
	option := models.ContingencyOption{
		Path:      "Gap year to strengthen the profile",
		Rationale: "A planned year of test preparation, work experience and documented activities raises both admission and scholarship odds for the next cycle.",
		FirstSteps: []string{
			"Set a test-score target and a study schedule",
			"Line up an internship or volunteer role for the year",
		},
	}
	if improvement.Succeeded() && improvement.Improvement != nil && len(improvement.Improvement.Actions) > 0 {
		top := improvement.Improvement.Actions[0]
		option.FirstSteps = append([]string{"Start with the top improvement action: " + top.Action}, option.FirstSteps...)
	}
	option.Rationale = h.narrateRationale(ctx, option.Rationale, improvement)
	return option
}

// narrateRationale rewords the gap-year rationale through the reasoning
// client; the template text stands in whenever narration is unavailable.
func (h *Handler) narrateRationale(ctx context.Context, fallback string, improvement *models.StageResult) string {
	if h.reasoner == nil {
		return fallback
	}

	facts := map[string]string{
		"benefit": "A structured year raises admission and scholarship odds for the next cycle.",
	}
	if improvement.Succeeded() && improvement.Improvement != nil && len(improvement.Improvement.Actions) > 0 {
		facts["focus"] = fmt.Sprintf("The plan already names %d concrete improvement actions to work through.",
			len(improvement.Improvement.Actions))
	}

	text, err := h.reasoner.Narrate(ctx, "contingency", facts)
	if err != nil || text == "" {
		if err != nil {
			h.logger.Warn("narration unavailable, using template rationale", map[string]interface{}{"error": err.Error()})
		}
		return fallback
	}
	return text
}

func titleCase(s string) string {
	if len(s) <= 3 {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
