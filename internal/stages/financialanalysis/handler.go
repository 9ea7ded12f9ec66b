// internal/stages/financialanalysis/handler.go
package financialanalysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
	"study-advisor/internal/normalizer"
	"study-advisor/internal/reasoner"
)

const TaskType = "financial-analysis"

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
	return models.StageFinancialAnalysis
}

func (h *Handler) Dependencies() []models.StageKind {
	return nil
}

// Run estimates tuition and living costs for the target destination and lays
// out structured funding options. It depends only on the profile, so it runs
// in parallel with scholarship matching.
func (h *Handler) Run(ctx context.Context, profile models.Profile, _ map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
	start := time.Now()

	if profile.FieldCount() == 0 {
		return models.NewFailedResult(h.Kind(), errors.NewInsufficientInput("no structured fields extracted from the message")), nil
	}

	country := profile.TargetCountry
	tuitionBasis := "international average"
	livingBasis := "international average"
	if country != "" {
		tuitionBasis = fmt.Sprintf("typical %s rates for %s", country, fieldLabel(profile.FieldOfStudy))
		livingBasis = fmt.Sprintf("typical %s living costs", country)
	}

	tuition := TuitionUSD(country, profile.FieldOfStudy)
	living := LivingUSD(country)
	total := tuition + living

	options := h.fundingOptions(profile, total)
	covered := 0.0
	for _, o := range options {
		covered += o.AmountUSD
	}
	gap := total - covered
	if gap < 0 {
		gap = 0
	}

	payload := &models.FinancialAnalysisPayload{
		Tuition:        models.CostEstimate{AnnualUSD: tuition, Basis: tuitionBasis},
		LivingCosts:    models.CostEstimate{AnnualUSD: living, Basis: livingBasis},
		FundingOptions: options,
		TotalAnnualUSD: total,
		FundingGapUSD:  gap,
	}

	h.logger.Info("financial analysis complete", map[string]interface{}{
		"country":     country,
		"totalAnnual": total,
		"fundingGap":  gap,
	})

	return &models.StageResult{
		Kind:      h.Kind(),
		Status:    models.StageSucceeded,
		Financial: payload,
		Duration:  time.Since(start),
	}, nil
}

// fundingOptions builds the structured funding entries in a fixed order:
// loans first, then country programs, then work and assistantships.
func (h *Handler) fundingOptions(profile models.Profile, total float64) []models.FundingOption {
	options := []models.FundingOption{
		{
			Name:      "Education loan",
			AmountUSD: roundUSD(total * h.config.LoanCoverageRatio),
			Coverage:  fmt.Sprintf("up to %.0f%% of annual costs", h.config.LoanCoverageRatio*100),
			Notes:     "Secured against a co-signer or collateral; compare fixed and floating rates.",
		},
	}

	switch strings.ToLower(profile.TargetCountry) {
	case "germany":
		options = append(options, models.FundingOption{
			Name:      "DAAD stipend",
			AmountUSD: 11000,
			Coverage:  "EUR 934/month living stipend",
			Notes:     "Applications close roughly a year before enrollment.",
		})
	case "singapore":
		options = append(options, models.FundingOption{
			Name:      "Tuition grant scheme",
			AmountUSD: 8000,
			Coverage:  "subsidized tuition with a post-study work bond",
			Notes:     "Requires a service commitment after graduation.",
		})
	case "canada":
		options = append(options, models.FundingOption{
			Name:      "Provincial entrance awards",
			AmountUSD: 5000,
			Coverage:  "one-time entrance funding",
		})
	}

	class := normalizer.Classify(profile)
	if class.AcademicLevel == "graduate" {
		options = append(options, models.FundingOption{
			Name:      "Teaching or research assistantship",
			AmountUSD: 12000,
			Coverage:  "partial tuition waiver plus stipend",
			Notes:     "Availability depends on department funding.",
		})
	}

	options = append(options, models.FundingOption{
		Name:     "Part-time work",
		Coverage: "living expense supplement within visa work-hour limits",
	})

	return options
}

func fieldLabel(field string) string {
	if field == "" {
		return "a general program"
	}
	return field
}

func roundUSD(v float64) float64 {
	return float64(int(v/100)) * 100
}
