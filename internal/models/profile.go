// internal/models/profile.go
package models

// GPA is a scale-tagged grade point average (e.g. 9.8 on a 10-point scale).
type GPA struct {
	Value float64 `json:"value"`
	Scale float64 `json:"scale"`
}

// Normalized converts the GPA to a 10-point scale for scoring.
func (g GPA) Normalized() float64 {
	if g.Scale <= 0 {
		return 0
	}
	return g.Value / g.Scale * 10
}

// Profile is the structured representation of a student's background
// extracted from free text. Empty strings, nil maps and empty slices all
// mean "not provided". RawText is retained verbatim for provenance and is
// never overwritten by merges.
type Profile struct {
	TargetInstitution string             `json:"targetInstitution,omitempty"`
	TargetCountry     string             `json:"targetCountry,omitempty"`
	FieldOfStudy      string             `json:"fieldOfStudy,omitempty"`
	GPA               *GPA               `json:"gpa,omitempty"`
	TestScores        map[string]float64 `json:"testScores,omitempty"`
	Certifications    []string           `json:"certifications,omitempty"`
	Extracurriculars  []string           `json:"extracurriculars,omitempty"`
	Internships       []string           `json:"internships,omitempty"`
	RawText           string             `json:"rawText"`
}

// Merge applies field-level overwrite semantics: a field present in update
// replaces the old value, absent fields are retained. RawText of the merged
// profile is the update's raw text (the most recent message).
func (p Profile) Merge(update Profile) Profile {
	out := p.Clone()
	out.RawText = update.RawText

	if update.TargetInstitution != "" {
		out.TargetInstitution = update.TargetInstitution
	}
	if update.TargetCountry != "" {
		out.TargetCountry = update.TargetCountry
	}
	if update.FieldOfStudy != "" {
		out.FieldOfStudy = update.FieldOfStudy
	}
	if update.GPA != nil {
		g := *update.GPA
		out.GPA = &g
	}
	for name, score := range update.TestScores {
		if out.TestScores == nil {
			out.TestScores = map[string]float64{}
		}
		out.TestScores[name] = score
	}
	if len(update.Certifications) > 0 {
		out.Certifications = mergeSet(out.Certifications, update.Certifications)
	}
	if len(update.Extracurriculars) > 0 {
		out.Extracurriculars = append(out.Extracurriculars, update.Extracurriculars...)
	}
	if len(update.Internships) > 0 {
		out.Internships = append(out.Internships, update.Internships...)
	}
	return out
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := p
	if p.GPA != nil {
		g := *p.GPA
		out.GPA = &g
	}
	if p.TestScores != nil {
		out.TestScores = make(map[string]float64, len(p.TestScores))
		for k, v := range p.TestScores {
			out.TestScores[k] = v
		}
	}
	out.Certifications = append([]string(nil), p.Certifications...)
	out.Extracurriculars = append([]string(nil), p.Extracurriculars...)
	out.Internships = append([]string(nil), p.Internships...)
	return out
}

// FieldCount returns how many structured fields are populated. RawText does
// not count; a profile with zero usable fields triggers InsufficientInput in
// every stage except contingency planning.
func (p Profile) FieldCount() int {
	n := 0
	if p.TargetInstitution != "" {
		n++
	}
	if p.TargetCountry != "" {
		n++
	}
	if p.FieldOfStudy != "" {
		n++
	}
	if p.GPA != nil {
		n++
	}
	if len(p.TestScores) > 0 {
		n++
	}
	if len(p.Certifications) > 0 {
		n++
	}
	if len(p.Extracurriculars) > 0 {
		n++
	}
	if len(p.Internships) > 0 {
		n++
	}
	return n
}

// EqualStructured reports whether two profiles carry identical structured
// fields. RawText is deliberately excluded: a pure follow-up question changes
// the raw text but not the structured profile, and must not trigger a re-run.
func (p Profile) EqualStructured(other Profile) bool {
	if p.TargetInstitution != other.TargetInstitution ||
		p.TargetCountry != other.TargetCountry ||
		p.FieldOfStudy != other.FieldOfStudy {
		return false
	}
	if (p.GPA == nil) != (other.GPA == nil) {
		return false
	}
	if p.GPA != nil && *p.GPA != *other.GPA {
		return false
	}
	if len(p.TestScores) != len(other.TestScores) {
		return false
	}
	for k, v := range p.TestScores {
		if ov, ok := other.TestScores[k]; !ok || ov != v {
			return false
		}
	}
	return equalSlices(p.Certifications, other.Certifications) &&
		equalSlices(p.Extracurriculars, other.Extracurriculars) &&
		equalSlices(p.Internships, other.Internships)
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mergeSet(existing, update []string) []string {
	seen := make(map[string]bool, len(existing)+len(update))
	out := make([]string, 0, len(existing)+len(update))
	// Insertion order is kept so that a re-mention of a known entry leaves
	// the slice bit-identical to the stored one.
	for _, s := range append(append([]string{}, existing...), update...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Classification is the derived student tier used for demographic and level
// scoring during scholarship matching.
type Classification struct {
	Region               string `json:"region"`
	AgeGroup             string `json:"ageGroup"`
	AcademicLevel        string `json:"academicLevel"`
	CertificateTier      string `json:"certificateTier"`
	ExtracurricularLevel string `json:"extracurricularLevel"`
	ProfileScore         int    `json:"profileScore"` // 1-10
}
