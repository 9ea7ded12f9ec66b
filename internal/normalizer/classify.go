// internal/normalizer/classify.go
package normalizer

import (
	"strings"

	"study-advisor/internal/models"
)

var regionKeywords = map[string][]string{
	"southeast_asia": {"vietnam", "thailand", "indonesia", "philippines", "malaysia", "singapore"},
	"east_asia":      {"china", "japan", "korea", "taiwan", "hong kong"},
	"south_asia":     {"india", "pakistan", "bangladesh", "sri lanka"},
	"europe":         {"germany", "france", "netherlands", "uk", "poland", "italy", "spain"},
	"north_america":  {"usa", "united states", "canada", "mexico"},
}

// Classify derives the student tier used for demographic and level scoring.
// It is deterministic and tolerant of sparse profiles.
func Classify(p models.Profile) models.Classification {
	lower := strings.ToLower(p.RawText)

	c := models.Classification{
		Region:               "international",
		AgeGroup:             "18-22",
		AcademicLevel:        academicLevel(p, lower),
		CertificateTier:      certificateTier(p),
		ExtracurricularLevel: extracurricularLevel(p),
	}

	for region, keywords := range regionKeywords {
		if containsAny(lower, keywords) {
			c.Region = region
			break
		}
	}
	if strings.Contains(lower, "high school") {
		c.AgeGroup = "16-18"
	} else if containsAny(lower, []string{"master", "phd", "postgraduate"}) {
		c.AgeGroup = "22-30"
	}

	c.ProfileScore = profileScore(p, c)
	return c
}

func academicLevel(p models.Profile, lower string) string {
	switch {
	case containsAny(lower, []string{"master", "phd", "postgraduate", "graduate school"}):
		return "graduate"
	case p.GPA != nil || len(p.TestScores) > 0 || strings.Contains(lower, "high school"):
		return "undergraduate"
	default:
		return "unspecified"
	}
}

func certificateTier(p models.Profile) string {
	strong, moderate := false, false
	for name, score := range p.TestScores {
		switch name {
		case "IELTS":
			strong = strong || score >= 7
			moderate = moderate || score >= 6
		case "TOEFL":
			strong = strong || score >= 100
			moderate = moderate || score >= 80
		case "SAT":
			strong = strong || score >= 1450
			moderate = moderate || score >= 1250
		case "ACT":
			strong = strong || score >= 32
			moderate = moderate || score >= 27
		case "GRE":
			strong = strong || score >= 325
			moderate = moderate || score >= 310
		case "GMAT":
			strong = strong || score >= 700
			moderate = moderate || score >= 600
		}
	}
	switch {
	case strong:
		return "strong"
	case moderate:
		return "moderate"
	case len(p.TestScores) > 0 || len(p.Certifications) > 0:
		return "basic"
	default:
		return "none"
	}
}

func extracurricularLevel(p models.Profile) string {
	leadership := false
	for _, e := range p.Extracurriculars {
		lower := strings.ToLower(e)
		if containsAny(lower, []string{"lead", "president", "captain", "founder", "head"}) {
			leadership = true
		}
	}
	switch {
	case leadership || len(p.Extracurriculars) >= 2:
		return "high"
	case len(p.Extracurriculars) == 1:
		return "moderate"
	default:
		return "low"
	}
}

// profileScore is a 1-10 rating used for success-likelihood estimation.
func profileScore(p models.Profile, c models.Classification) int {
	score := 3
	if p.GPA != nil {
		switch norm := p.GPA.Normalized(); {
		case norm >= 9:
			score += 3
		case norm >= 8:
			score += 2
		case norm >= 7:
			score++
		}
	}
	switch c.CertificateTier {
	case "strong":
		score += 2
	case "moderate":
		score++
	}
	switch c.ExtracurricularLevel {
	case "high":
		score += 2
	case "moderate":
		score++
	}
	if len(p.Internships) > 0 {
		score++
	}
	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}
	return score
}
