// internal/normalizer/normalizer_test.go
package normalizer

import (
	"testing"

	"study-advisor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RichMessage(t *testing.T) {
	raw := "I'm a Vietnamese high school student with GPA 9.8/10, IELTS 8.0, SAT 1500. " +
		"I was communications lead for a 200-person charity project. " +
		"I want to study computer science at NUS in Singapore."

	p := Normalize(raw, nil)

	assert.Equal(t, "NUS", p.TargetInstitution)
	assert.Equal(t, "Singapore", p.TargetCountry)
	assert.Equal(t, "Computer Science", p.FieldOfStudy)

	require.NotNil(t, p.GPA)
	assert.Equal(t, 9.8, p.GPA.Value)
	assert.Equal(t, 10.0, p.GPA.Scale)

	assert.Equal(t, 8.0, p.TestScores["IELTS"])
	assert.Equal(t, 1500.0, p.TestScores["SAT"])

	// The clause with the comma must survive as one entry.
	require.Len(t, p.Extracurriculars, 1)
	assert.Contains(t, p.Extracurriculars[0], "communications lead")
	assert.Contains(t, p.Extracurriculars[0], "200-person charity project")

	assert.Equal(t, raw, p.RawText)
}

func TestNormalize_GreetingYieldsRawOnlyProfile(t *testing.T) {
	p := Normalize("hi", nil)

	assert.Equal(t, 0, p.FieldCount())
	assert.Equal(t, "hi", p.RawText)
}

func TestNormalize_MergesIntoPrior(t *testing.T) {
	prior := Normalize("GPA 9.0/10, aiming for NUS computer science", nil)
	merged := Normalize("I also got SAT 1500", &prior)

	assert.Equal(t, "NUS", merged.TargetInstitution, "earlier fields are retained")
	assert.Equal(t, 1500.0, merged.TestScores["SAT"])
	require.NotNil(t, merged.GPA)
	assert.Equal(t, 9.0, merged.GPA.Value)
	assert.Equal(t, "I also got SAT 1500", merged.RawText, "raw text is always the latest message")
}

func TestNormalize_UpdateOverwritesField(t *testing.T) {
	prior := Normalize("GPA 8.5/10, looking at Canada", nil)
	merged := Normalize("actually my GPA is 9.2/10", &prior)

	require.NotNil(t, merged.GPA)
	assert.Equal(t, 9.2, merged.GPA.Value)
	assert.Equal(t, "Canada", merged.TargetCountry)
}

func TestNormalize_PureQuestionLeavesProfileUnchanged(t *testing.T) {
	prior := Normalize("GPA 9.8/10, IELTS 8.0, aiming for NUS computer science", nil)
	merged := Normalize("why is the success likelihood so low?", &prior)

	assert.True(t, merged.EqualStructured(prior), "a pure question must not change structured fields")
	assert.NotEqual(t, prior.RawText, merged.RawText)
}

func TestExtractGPA(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  *models.GPA
	}{
		{"scaled", "my GPA is 3.7/4", &models.GPA{Value: 3.7, Scale: 4}},
		{"ten scale", "GPA 9.8/10", &models.GPA{Value: 9.8, Scale: 10}},
		{"plain four scale", "GPA of 3.5", &models.GPA{Value: 3.5, Scale: 4}},
		{"plain ten scale", "gpa 8.2", &models.GPA{Value: 8.2, Scale: 10}},
		{"plain percent scale", "GPA: 88", &models.GPA{Value: 88, Scale: 100}},
		{"value above scale rejected", "scored 12/10 on effort", nil},
		{"absent", "no numbers here", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractGPA(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestExtractTestScores_RejectsImplausibleValues(t *testing.T) {
	scores := extractTestScores("SAT 9000 and IELTS 7.5")
	assert.NotContains(t, scores, "SAT")
	assert.Equal(t, 7.5, scores["IELTS"])
}

func TestNormalize_InternshipsAndCertifications(t *testing.T) {
	p := Normalize("I did a summer internship at a bank. I hold an AWS certification.", nil)

	require.Len(t, p.Internships, 1)
	assert.Contains(t, p.Internships[0], "internship")
	assert.Contains(t, p.Certifications, "AWS")
}

func TestClassify_StrongProfile(t *testing.T) {
	p := Normalize("Vietnamese high school student, GPA 9.8/10, IELTS 8.0, SAT 1500, communications lead for a charity project, NUS computer science", nil)

	c := Classify(p)
	assert.Equal(t, "southeast_asia", c.Region)
	assert.Equal(t, "16-18", c.AgeGroup)
	assert.Equal(t, "undergraduate", c.AcademicLevel)
	assert.Equal(t, "strong", c.CertificateTier)
	assert.Equal(t, "high", c.ExtracurricularLevel)
	assert.GreaterOrEqual(t, c.ProfileScore, 9)
}

func TestClassify_EmptyProfile(t *testing.T) {
	c := Classify(Normalize("hi", nil))

	assert.Equal(t, "international", c.Region)
	assert.Equal(t, "unspecified", c.AcademicLevel)
	assert.Equal(t, "none", c.CertificateTier)
	assert.Equal(t, "low", c.ExtracurricularLevel)
	assert.GreaterOrEqual(t, c.ProfileScore, 1)
	assert.LessOrEqual(t, c.ProfileScore, 10)
}
