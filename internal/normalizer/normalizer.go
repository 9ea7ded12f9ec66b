// Package normalizer parses a raw user message into a structured Profile.
// It never fails hard: text with no extractable field still yields a valid
// Profile whose only populated field is the raw source text.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"study-advisor/internal/models"
)

var (
	gpaScaledRe = regexp.MustCompile(`(?i)\b(?:gpa[^0-9]{0,10})?(\d+(?:\.\d+)?)\s*/\s*(4|5|10|20|100)\b`)
	gpaPlainRe  = regexp.MustCompile(`(?i)\bgpa\b[^0-9]{0,10}(\d+(?:\.\d+)?)`)
	testScoreRe = regexp.MustCompile(`(?i)\b(SAT|ACT|IELTS|TOEFL|GRE|GMAT)\b[\s:]*(\d+(?:\.\d+)?)`)
)

// knownInstitutions maps lowercase keywords to canonical institution names
// and their countries.
var knownInstitutions = []struct {
	keyword     string
	institution string
	country     string
}{
	{"nus", "NUS", "Singapore"},
	{"national university of singapore", "NUS", "Singapore"},
	{"ntu", "NTU", "Singapore"},
	{"university of toronto", "University of Toronto", "Canada"},
	{"toronto", "University of Toronto", "Canada"},
	{"mit", "MIT", "USA"},
	{"stanford", "Stanford University", "USA"},
	{"harvard", "Harvard University", "USA"},
	{"oxford", "University of Oxford", "UK"},
	{"cambridge", "University of Cambridge", "UK"},
	{"eth zurich", "ETH Zurich", "Switzerland"},
	{"tu munich", "TU Munich", "Germany"},
	{"melbourne", "University of Melbourne", "Australia"},
	{"tokyo", "University of Tokyo", "Japan"},
}

var knownCountries = []string{
	"Singapore", "Canada", "USA", "United States", "UK", "United Kingdom",
	"Australia", "Germany", "Netherlands", "France", "Japan", "South Korea",
	"Switzerland",
}

var knownFields = []string{
	"Computer Science", "Data Science", "Software Engineering", "Engineering",
	"Medicine", "Law", "Business", "MBA", "Economics", "Mathematics",
	"Physics", "Biology", "Chemistry", "Psychology", "Architecture",
}

var extracurricularKeywords = []string{
	"volunteer", "club", "charity", "lead", "president", "captain",
	"olympiad", "robotics", "debate", "community", "founder", "organiz",
}

var internshipKeywords = []string{
	"intern", "internship", "work experience", "worked at", "part-time",
	"research assistant",
}

var certificationKeywords = []string{
	"AWS", "Cisco", "CFA", "CPA", "PMP", "Google Cloud", "Azure",
	"DELF", "HSK", "JLPT",
}

// Normalize extracts a Profile from rawText and merges it into prior when
// supplied. It is a pure function of its inputs.
func Normalize(rawText string, prior *models.Profile) models.Profile {
	p := models.Profile{RawText: rawText}
	lower := strings.ToLower(rawText)

	for _, inst := range knownInstitutions {
		if strings.Contains(lower, inst.keyword) {
			p.TargetInstitution = inst.institution
			p.TargetCountry = inst.country
			break
		}
	}
	if p.TargetCountry == "" {
		for _, c := range knownCountries {
			if strings.Contains(lower, strings.ToLower(c)) {
				p.TargetCountry = c
				break
			}
		}
	}
	for _, f := range knownFields {
		if strings.Contains(lower, strings.ToLower(f)) {
			p.FieldOfStudy = f
			break
		}
	}

	p.GPA = extractGPA(rawText)
	p.TestScores = extractTestScores(rawText)
	p.Certifications = extractCertifications(rawText)

	for _, segment := range splitSegments(rawText) {
		segLower := strings.ToLower(segment)
		switch {
		case containsAny(segLower, internshipKeywords):
			p.Internships = append(p.Internships, segment)
		case containsAny(segLower, extracurricularKeywords):
			p.Extracurriculars = append(p.Extracurriculars, segment)
		}
	}

	if prior != nil {
		return prior.Merge(p)
	}
	return p
}

func extractGPA(text string) *models.GPA {
	if m := gpaScaledRe.FindStringSubmatch(text); m != nil {
		value, err1 := strconv.ParseFloat(m[1], 64)
		scale, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && value <= scale {
			return &models.GPA{Value: value, Scale: scale}
		}
	}
	if m := gpaPlainRe.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		// Infer the scale from the magnitude.
		switch {
		case value <= 4:
			return &models.GPA{Value: value, Scale: 4}
		case value <= 10:
			return &models.GPA{Value: value, Scale: 10}
		case value <= 100:
			return &models.GPA{Value: value, Scale: 100}
		}
	}
	return nil
}

func extractTestScores(text string) map[string]float64 {
	matches := testScoreRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		name := strings.ToUpper(m[1])
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil || !plausibleScore(name, value) {
			continue
		}
		scores[name] = value
	}
	if len(scores) == 0 {
		return nil
	}
	return scores
}

func plausibleScore(test string, v float64) bool {
	switch test {
	case "SAT":
		return v >= 400 && v <= 1600
	case "ACT":
		return v >= 1 && v <= 36
	case "IELTS":
		return v >= 0 && v <= 9
	case "TOEFL":
		return v >= 0 && v <= 120
	case "GRE":
		return v >= 260 && v <= 340
	case "GMAT":
		return v >= 200 && v <= 805
	}
	return false
}

func extractCertifications(text string) []string {
	var out []string
	lower := strings.ToLower(text)
	for _, c := range certificationKeywords {
		if strings.Contains(lower, strings.ToLower(c)) {
			out = append(out, c)
		}
	}
	return out
}

// splitSegments breaks the message into clause-level segments. Commas are
// kept inside a segment so entries like "communications lead, 200-person
// charity project" survive intact.
func splitSegments(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
