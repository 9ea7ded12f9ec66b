// internal/models/report.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Section names the report sections that are fed by pipeline stages.
type Section string

const (
	SectionScholarships Section = "top-scholarships"
	SectionFinancial    Section = "financial-analysis"
	SectionImprovement  Section = "improvement-plan"
	SectionStrategy     Section = "application-strategy"
	SectionContingency  Section = "contingency-plan"
)

// SectionForStage maps a stage kind to the report section it feeds.
func SectionForStage(kind StageKind) Section {
	switch kind {
	case StageScholarshipMatch:
		return SectionScholarships
	case StageFinancialAnalysis:
		return SectionFinancial
	case StageImprovementPlan:
		return SectionImprovement
	case StageApplicationStrategy:
		return SectionStrategy
	default:
		return SectionContingency
	}
}

// Report is the final aggregated advisory document. A section whose feeding
// stage failed appears in Unavailable with the failure reason and its content
// field is left empty; IsPartial is then true.
type Report struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`

	Overview     string                    `json:"overview"`
	Scholarships []ScholarshipCandidate    `json:"scholarships,omitempty"`
	Financial    *FinancialAnalysisPayload `json:"financial,omitempty"`
	Improvement  []ImprovementAction       `json:"improvement,omitempty"`
	Timeline     []TimelineEntry           `json:"timeline,omitempty"`
	Notes        string                    `json:"notes,omitempty"`
	Contingency  []ContingencyOption       `json:"contingency,omitempty"`

	IsPartial   bool               `json:"isPartial"`
	Unavailable map[Section]string `json:"unavailable,omitempty"`
}

// Render serializes the report as a markdown document with the six
// user-facing sections. Unavailable sections carry an explicit marker, never
// a silent omission.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString("# Study Abroad Advisory Report\n\n")
	if r.IsPartial {
		b.WriteString("> This report is partial: one or more analysis sections were unavailable.\n\n")
	}

	b.WriteString("## 1. Overview\n\n")
	b.WriteString(r.Overview)
	b.WriteString("\n\n")

	b.WriteString("## 2. Top Scholarships\n\n")
	if reason, ok := r.Unavailable[SectionScholarships]; ok {
		writeUnavailable(&b, reason)
	} else {
		for _, c := range r.Scholarships {
			fmt.Fprintf(&b, "%d. **%s** — fit %d/100, success likelihood %d/100 (%s)\n",
				c.Rank, c.Name, c.FitScore, c.SuccessLikelihood, c.MatchLevel)
			if c.SubmissionStrategy != "" {
				fmt.Fprintf(&b, "   - Strategy: %s\n", c.SubmissionStrategy)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## 3. Financial Analysis\n\n")
	if reason, ok := r.Unavailable[SectionFinancial]; ok {
		writeUnavailable(&b, reason)
	} else if r.Financial != nil {
		fmt.Fprintf(&b, "- Tuition: $%.0f/year (%s)\n", r.Financial.Tuition.AnnualUSD, r.Financial.Tuition.Basis)
		fmt.Fprintf(&b, "- Living costs: $%.0f/year (%s)\n", r.Financial.LivingCosts.AnnualUSD, r.Financial.LivingCosts.Basis)
		fmt.Fprintf(&b, "- Estimated total: $%.0f/year, funding gap $%.0f\n", r.Financial.TotalAnnualUSD, r.Financial.FundingGapUSD)
		for _, f := range r.Financial.FundingOptions {
			fmt.Fprintf(&b, "- Funding option: %s (%s)\n", f.Name, f.Coverage)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 4. Improvement Plan\n\n")
	if reason, ok := r.Unavailable[SectionImprovement]; ok {
		writeUnavailable(&b, reason)
	} else {
		for i, a := range r.Improvement {
			fmt.Fprintf(&b, "%d. [%s] %s (%s)\n", i+1, a.Area, a.Action, a.Timeline)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 5. Application Strategy & Timeline\n\n")
	if reason, ok := r.Unavailable[SectionStrategy]; ok {
		writeUnavailable(&b, reason)
	} else {
		for _, t := range r.Timeline {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", t.Milestone, t.When, strings.Join(t.Tasks, "; "))
		}
		if r.Notes != "" {
			b.WriteString("\n" + r.Notes + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## 6. Contingency Plan\n\n")
	if reason, ok := r.Unavailable[SectionContingency]; ok {
		writeUnavailable(&b, reason)
	} else {
		for i, c := range r.Contingency {
			fmt.Fprintf(&b, "%d. **%s** — %s\n", i+1, c.Path, c.Rationale)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeUnavailable(b *strings.Builder, reason string) {
	fmt.Fprintf(b, "_Section unavailable: %s_\n\n", reason)
}
