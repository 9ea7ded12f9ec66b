// internal/stages/improvementplan/handler.go
package improvementplan

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

const TaskType = "improvement-plan"

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
	return models.StageImprovementPlan
}

func (h *Handler) Dependencies() []models.StageKind {
	return []models.StageKind{models.StageScholarshipMatch}
}

// Run derives concrete profile-strengthening actions from the unmet
// scholarship requirements and the profile's weak areas. The orchestrator
// guarantees the scholarship result is present and successful; a missing
// dependency here is an internal fault.
func (h *Handler) Run(ctx context.Context, profile models.Profile, upstream map[models.StageKind]*models.StageResult) (*models.StageResult, error) {
	start := time.Now()

	match := upstream[models.StageScholarshipMatch]
	if !match.Succeeded() || match.Scholarships == nil {
		return nil, fmt.Errorf("improvement plan invoked without a successful scholarship result")
	}

	if profile.FieldCount() == 0 {
		return models.NewFailedResult(h.Kind(), errors.NewInsufficientInput("no structured fields extracted from the message")), nil
	}

	actions := h.buildActions(profile, match.Scholarships)
	if len(actions) > h.config.MaxActions {
		actions = actions[:h.config.MaxActions]
	}

	h.logger.Info("improvement plan complete", map[string]interface{}{
		"actions": len(actions),
	})

	return &models.StageResult{
		Kind:        h.Kind(),
		Status:      models.StageSucceeded,
		Improvement: &models.ImprovementPlanPayload{Actions: actions},
		Duration:    time.Since(start),
	}, nil
}

// buildActions orders actions by urgency: unmet scholarship requirements
// first, then profile-wide weaknesses, then an upkeep item so the plan is
// never empty.
func (h *Handler) buildActions(profile models.Profile, match *models.ScholarshipMatchPayload) []models.ImprovementAction {
	var actions []models.ImprovementAction
	seen := map[string]bool{}

	for _, candidate := range match.Candidates {
		for _, missing := range candidate.MissingRequirements {
			key := classifyGap(missing)
			if seen[key] {
				continue
			}
			seen[key] = true
			actions = append(actions, gapAction(key, missing, candidate.Name))
		}
	}

	class := normalizer.Classify(profile)

	if profile.GPA == nil && !seen["academics"] {
		seen["academics"] = true
		actions = append(actions, models.ImprovementAction{
			Area:     "Academics",
			Action:   "Share your GPA or latest transcript so academic fit can be scored precisely.",
			Timeline: "now",
			Metric:   "GPA on record",
		})
	}
	if class.CertificateTier == "none" && !seen["testing"] {
		seen["testing"] = true
		actions = append(actions, models.ImprovementAction{
			Area:     "Testing",
			Action:   "Register for an English proficiency test (IELTS or TOEFL); most scholarships require one.",
			Timeline: "next 3 months",
			Metric:   "IELTS 6.5+ or TOEFL 90+",
		})
	}
	if class.ExtracurricularLevel == "low" && !seen["leadership"] {
		seen["leadership"] = true
		actions = append(actions, models.ImprovementAction{
			Area:     "Leadership",
			Action:   "Take a named role in a club, project or volunteer effort you can document.",
			Timeline: "3-6 months",
			Metric:   "one documented leadership role",
		})
	}
	if len(profile.Internships) == 0 && !seen["experience"] {
		seen["experience"] = true
		actions = append(actions, models.ImprovementAction{
			Area:     "Experience",
			Action:   "Pursue an internship or research project related to " + fieldLabel(profile.FieldOfStudy) + ".",
			Timeline: "3-6 months",
			Metric:   "one completed internship or project",
		})
	}

	if len(actions) == 0 {
		actions = append(actions, models.ImprovementAction{
			Area:     "Upkeep",
			Action:   "Your profile already meets the listed requirements; keep grades and activities current until submission.",
			Timeline: "ongoing",
		})
	}
	return actions
}

// classifyGap buckets a missing-requirement string into an action area so the
// same gap across several scholarships yields a single action.
func classifyGap(missing string) string {
	lower := strings.ToLower(missing)
	switch {
	case strings.Contains(lower, "gpa"):
		return "academics"
	case strings.Contains(lower, "ielts") || strings.Contains(lower, "toefl") ||
		strings.Contains(lower, "sat") || strings.Contains(lower, "act") ||
		strings.Contains(lower, "gre") || strings.Contains(lower, "gmat"):
		return "testing"
	case strings.Contains(lower, "leadership"):
		return "leadership"
	default:
		return "other"
	}
}

func gapAction(area, missing, scholarship string) models.ImprovementAction {
	switch area {
	case "academics":
		return models.ImprovementAction{
			Area:     "Academics",
			Action:   fmt.Sprintf("Raise your GPA: %s (required by %s).", missing, scholarship),
			Timeline: "this semester",
			Metric:   "meet the published GPA bar",
		}
	case "testing":
		return models.ImprovementAction{
			Area:     "Testing",
			Action:   fmt.Sprintf("Close the test-score gap: %s (required by %s).", missing, scholarship),
			Timeline: "next 3 months",
			Metric:   "score at or above the requirement",
		}
	case "leadership":
		return models.ImprovementAction{
			Area:     "Leadership",
			Action:   fmt.Sprintf("Build %s (required by %s).", missing, scholarship),
			Timeline: "3-6 months",
			Metric:   "one documented leadership role",
		}
	default:
		return models.ImprovementAction{
			Area:     "Profile",
			Action:   fmt.Sprintf("Address: %s (flagged by %s).", missing, scholarship),
			Timeline: "3-6 months",
		}
	}
}

func fieldLabel(field string) string {
	if field == "" {
		return "your intended field"
	}
	return field
}
