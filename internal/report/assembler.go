// Package report assembles the final advisory document from stage results.
// Assembly is pure: payloads are copied verbatim with no re-scoring or
// re-sorting, and failed sections get explicit unavailable markers.
package report

import (
	"fmt"
	"strings"
	"time"

	"study-advisor/internal/models"
)

// Assemble builds the report from the profile and the five stage results.
// Missing results are treated like failed ones: the section is marked
// unavailable and the report is partial.
func Assemble(profile models.Profile, results map[models.StageKind]*models.StageResult, runID string, now time.Time) *models.Report {
	r := &models.Report{
		RunID:       runID,
		GeneratedAt: now.UTC(),
		Unavailable: map[models.Section]string{},
	}

	for _, kind := range models.AllStageKinds() {
		result := results[kind]
		if !result.Succeeded() {
			r.Unavailable[models.SectionForStage(kind)] = unavailableReason(result)
			r.IsPartial = true
			continue
		}
		switch kind {
		case models.StageScholarshipMatch:
			r.Scholarships = result.Scholarships.Candidates
		case models.StageFinancialAnalysis:
			r.Financial = result.Financial
		case models.StageImprovementPlan:
			r.Improvement = result.Improvement.Actions
		case models.StageApplicationStrategy:
			r.Timeline = result.Strategy.Timeline
			r.Notes = result.Strategy.Notes
		case models.StageContingencyPlan:
			r.Contingency = result.Contingency.Options
		}
	}

	if len(r.Unavailable) == 0 {
		r.Unavailable = nil
	}

	r.Overview = overview(profile, r)
	return r
}

func unavailableReason(result *models.StageResult) string {
	if result == nil {
		return "the analysis did not run"
	}
	if result.Error != nil {
		return fmt.Sprintf("%s (%s)", result.Error.Message, result.Error.Code)
	}
	return "the analysis did not complete"
}

// overview is derived from the assembled sections, not fed by any stage.
func overview(profile models.Profile, r *models.Report) string {
	var b strings.Builder

	subject := "your study-abroad plans"
	switch {
	case profile.TargetInstitution != "" && profile.FieldOfStudy != "":
		subject = fmt.Sprintf("%s at %s", profile.FieldOfStudy, profile.TargetInstitution)
	case profile.TargetInstitution != "":
		subject = profile.TargetInstitution
	case profile.TargetCountry != "" && profile.FieldOfStudy != "":
		subject = fmt.Sprintf("%s in %s", profile.FieldOfStudy, profile.TargetCountry)
	case profile.TargetCountry != "":
		subject = "studying in " + profile.TargetCountry
	case profile.FieldOfStudy != "":
		subject = "studying " + profile.FieldOfStudy
	}
	fmt.Fprintf(&b, "This report covers %s.", subject)

	if len(r.Scholarships) > 0 {
		fmt.Fprintf(&b, " %d scholarship option(s) were identified; the strongest is %s.",
			len(r.Scholarships), r.Scholarships[0].Name)
	}
	if r.Financial != nil {
		fmt.Fprintf(&b, " The estimated annual budget is USD %.0f.", r.Financial.TotalAnnualUSD)
	}
	if r.IsPartial {
		fmt.Fprintf(&b, " %d section(s) could not be completed this time and are marked below.", len(r.Unavailable))
	}
	return b.String()
}
