// internal/stages/scholarshipmatch/handler.go
package scholarshipmatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"study-advisor/internal/catalog"
	"study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
	"study-advisor/internal/normalizer"
	"study-advisor/internal/reasoner"
)

const TaskType = "scholarship-match"

// Fit rubric weights. They sum to 100 so a candidate's fit score reads as a
// percentage.
const (
	weightDemographics    = 20
	weightAcademic        = 30
	weightCertificates    = 25
	weightExtracurricular = 15
	weightField           = 10
)

type Handler struct {
	config   *Config
	catalog  catalog.Source
	reasoner reasoner.Client
	logger   logger.Logger
}

func NewHandler(config *Config, source catalog.Source, rc reasoner.Client, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		catalog:  source,
		reasoner: rc,
		logger:   log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Kind() models.StageKind {
	return models.StageScholarshipMatch
}

func (h *Handler) Dependencies() []models.StageKind {
	return nil
}

// Run scores every catalog entry against the profile and keeps the top
// candidates at or above the fair cutoff. Fewer than three survivors is a
// degraded but still successful result; an empty profile is not scoreable at
// all and fails with INSUFFICIENT_INPUT.
func (h *Handler) Run(ctx context.Context, profile models.Profile, _ map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
	start := time.Now()

	if profile.FieldCount() == 0 {
		return models.NewFailedResult(h.Kind(), errors.NewInsufficientInput("no structured fields extracted from the message")), nil
	}

	entries, err := h.catalog.Lookup(ctx, profile.FieldOfStudy, profile.TargetCountry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return models.NewFailedResult(h.Kind(), errors.NewCatalogQueryFailed(err)), nil
	}

	class := normalizer.Classify(profile)

	type scored struct {
		entry      catalog.Scholarship
		fit        int
		likelihood int
		criteria   []string
		missing    []string
	}

	candidates := make([]scored, 0, len(entries))
	for _, entry := range entries {
		fit, criteria, missing := h.scoreFit(profile, class, entry)
		if fit < h.config.FairCutoff {
			continue
		}
		candidates = append(candidates, scored{
			entry:      entry,
			fit:        fit,
			likelihood: successLikelihood(fit, class.ProfileScore, len(missing)),
			criteria:   criteria,
			missing:    missing,
		})
	}

	// Descending fit, ties by descending likelihood; the stable sort keeps
	// catalog input order for full ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].fit != candidates[j].fit {
			return candidates[i].fit > candidates[j].fit
		}
		return candidates[i].likelihood > candidates[j].likelihood
	})

	if len(candidates) > h.config.MaxCandidates {
		candidates = candidates[:h.config.MaxCandidates]
	}

	out := make([]models.ScholarshipCandidate, 0, len(candidates))
	for i, c := range candidates {
		level := matchLevel(c.fit)
		out = append(out, models.ScholarshipCandidate{
			Name:                c.entry.Name,
			University:          c.entry.University,
			FitScore:            c.fit,
			SuccessLikelihood:   c.likelihood,
			Rank:                i + 1,
			MatchLevel:          level,
			Amount:              c.entry.Amount,
			MatchingCriteria:    c.criteria,
			MissingRequirements: c.missing,
			SubmissionStrategy:  submissionStrategy(level, c.entry.Deadline, c.missing),
		})
	}

	payload := &models.ScholarshipMatchPayload{
		Candidates: out,
		Summary:    h.summarize(ctx, profile, out),
	}

	h.logger.Info("scholarship matching complete", map[string]interface{}{
		"catalogEntries": len(entries),
		"candidates":     len(out),
		"degraded":       len(out) < 3,
	})

	return &models.StageResult{
		Kind:         h.Kind(),
		Status:       models.StageSucceeded,
		Scholarships: payload,
		Duration:     time.Since(start),
	}, nil
}

// scoreFit applies the weighted rubric and reports which criteria matched and
// which requirements the profile is missing.
func (h *Handler) scoreFit(profile models.Profile, class models.Classification, entry catalog.Scholarship) (int, []string, []string) {
	var criteria, missing []string
	score := 0

	// Demographics: target-region scholarships favor matching regions;
	// unrestricted entries treat everyone equally.
	if len(entry.TargetRegions) == 0 {
		score += weightDemographics
	} else if containsFold(entry.TargetRegions, class.Region) {
		score += weightDemographics
		criteria = append(criteria, "eligible region")
	} else {
		score += weightDemographics * 2 / 5
	}

	// Academic record against the GPA bar.
	switch {
	case profile.GPA == nil:
		score += weightAcademic * 2 / 5
		if entry.MinGPA > 0 {
			missing = append(missing, "GPA not provided")
		}
	case entry.MinGPA == 0 || profile.GPA.Normalized() >= entry.MinGPA:
		score += weightAcademic
		if entry.MinGPA > 0 {
			criteria = append(criteria, "meets GPA requirement")
		}
	case profile.GPA.Normalized() >= entry.MinGPA-0.5:
		score += weightAcademic * 3 / 4
		missing = append(missing, fmt.Sprintf("GPA slightly below the %.1f/10 bar", entry.MinGPA))
	default:
		score += weightAcademic / 5
		missing = append(missing, fmt.Sprintf("GPA below the %.1f/10 bar", entry.MinGPA))
	}

	// Standardized tests and certificates.
	if len(entry.RequiredTests) > 0 {
		names := make([]string, 0, len(entry.RequiredTests))
		for name := range entry.RequiredTests {
			names = append(names, name)
		}
		sort.Strings(names)

		share := weightCertificates / len(names)
		for _, name := range names {
			required := entry.RequiredTests[name]
			have, ok := profile.TestScores[name]
			switch {
			case ok && have >= required:
				score += share
				criteria = append(criteria, fmt.Sprintf("%s %.0f meets requirement", name, have))
			case ok && have >= required*0.9:
				score += share * 3 / 5
				missing = append(missing, fmt.Sprintf("%s just under the %.0f requirement", name, required))
			default:
				missing = append(missing, fmt.Sprintf("%s %.0f required", name, required))
			}
		}
	} else {
		switch class.CertificateTier {
		case "strong":
			score += weightCertificates
			criteria = append(criteria, "strong test scores")
		case "moderate":
			score += weightCertificates * 4 / 5
		case "basic":
			score += weightCertificates * 3 / 5
		default:
			score += weightCertificates * 2 / 5
		}
	}

	// Extracurricular activities and leadership.
	switch {
	case entry.RequiresLeadership && class.ExtracurricularLevel == "high":
		score += weightExtracurricular
		criteria = append(criteria, "demonstrated leadership")
	case entry.RequiresLeadership && class.ExtracurricularLevel == "moderate":
		score += weightExtracurricular / 2
		missing = append(missing, "evidence of a leadership role")
	case entry.RequiresLeadership:
		score += weightExtracurricular / 5
		missing = append(missing, "evidence of a leadership role")
	case class.ExtracurricularLevel == "high":
		score += weightExtracurricular
		criteria = append(criteria, "strong extracurricular record")
	case class.ExtracurricularLevel == "moderate":
		score += weightExtracurricular * 2 / 3
	default:
		score += weightExtracurricular * 2 / 5
	}

	// Field alignment.
	switch {
	case entry.Field == "":
		score += weightField * 7 / 10
	case strings.EqualFold(entry.Field, profile.FieldOfStudy):
		score += weightField
		criteria = append(criteria, "field of study matches")
	default:
		score += weightField * 3 / 10
	}

	return score, criteria, missing
}

// successLikelihood estimates the admission chance from the fit score, the
// 1-10 profile rating and the number of unmet requirements.
func successLikelihood(fit, profileScore, missingCount int) int {
	likelihood := fit - 10 + profileScore*2 - missingCount*5
	if likelihood > 95 {
		likelihood = 95
	}
	if likelihood < 5 {
		likelihood = 5
	}
	return likelihood
}

func matchLevel(fit int) models.MatchLevel {
	switch {
	case fit >= 80:
		return models.MatchExcellent
	case fit >= 65:
		return models.MatchGood
	default:
		return models.MatchFair
	}
}

func submissionStrategy(level models.MatchLevel, deadline string, missing []string) string {
	when := "as early as possible"
	if deadline != "" && !strings.EqualFold(deadline, "rolling") {
		when = "well before the " + deadline + " deadline"
	}
	switch level {
	case models.MatchExcellent:
		return "Apply " + when + "; lead with your academic record and treat this as a primary target."
	case models.MatchGood:
		if len(missing) > 0 {
			return "Apply " + when + " and address the gaps in your essays: " + strings.Join(missing, "; ") + "."
		}
		return "Apply " + when + " with strong recommendation letters to close the gap."
	default:
		return "Treat this as a reach; submit " + when + " only after strengthening your profile."
	}
}

func (h *Handler) summarize(ctx context.Context, profile models.Profile, candidates []models.ScholarshipCandidate) string {
	var fallback string
	switch {
	case len(candidates) == 0:
		fallback = "No scholarships cleared the fit threshold for this profile; consider broadening the target country or field."
	default:
		target := profile.TargetCountry
		if target == "" {
			target = "your target destinations"
		}
		fallback = fmt.Sprintf("Found %d scholarship matches for %s; the strongest fit is %s at %d/100.",
			len(candidates), target, candidates[0].Name, candidates[0].FitScore)
	}

	if h.reasoner == nil {
		return fallback
	}

	facts := map[string]string{
		"count": fmt.Sprintf("%d scholarships matched.", len(candidates)),
	}
	if len(candidates) > 0 {
		facts["top"] = fmt.Sprintf("Best fit: %s (%d/100, %s match).",
			candidates[0].Name, candidates[0].FitScore, candidates[0].MatchLevel)
	}

	text, err := h.reasoner.Narrate(ctx, "scholarships", facts)
	if err != nil || text == "" {
		if err != nil {
			h.logger.Warn("narration unavailable, using template summary", map[string]interface{}{"error": err.Error()})
		}
		return fallback
	}
	return text
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
